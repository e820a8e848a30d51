// Package browsersession provides utilities to tie requests of the same
// browser together with a random session id kept in a cookie, and to inject
// and retrieve that id in and from the context.
package browsersession

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/b2c-auth-demo/internal/config"
)

// Using an unexported type prevents key collisions from other packages.
type contextKey string

// SessionIDKey is the context key used to store the browser session id.
const SessionIDKey contextKey = "browser-session-id"

// Middleware is an http.Handler middleware that reads the browser session id
// from the cookie described by template. A new id is issued when the cookie is
// missing or not a UUID.
func Middleware(template config.CookieTemplate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(template.Name); err == nil {
				if _, err := uuid.Parse(cookie.Value); err == nil {
					sessionID = cookie.Value
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, template.ToCookie(sessionID))
				slogctx.Debug(r.Context(), "Issued a new browser session")
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext is a helper function that retrieves the browser
// session id from the context.
func SessionIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(SessionIDKey).(string)
	if !ok {
		return "", errors.New("browser session id not found in context")
	}
	return id, nil
}

package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/openkcm/common-sdk/pkg/csrf"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/b2c-auth-demo/internal/config"
	"github.com/openkcm/b2c-auth-demo/internal/middleware/browsersession"
	"github.com/openkcm/b2c-auth-demo/internal/serviceerr"
	"github.com/openkcm/b2c-auth-demo/internal/view"
)

const csrfFormField = "csrf_token"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type indexData struct {
	Model     view.Model
	CSRFToken string
}

// webServer serves the demo page and its three controls. Every control
// applies the same policy to errors: log them and render the page again.
type webServer struct {
	view       *view.View
	csrfSecret []byte
}

func newWebHandler(cfg *config.Config, v *view.View, csrfSecret []byte) http.Handler {
	s := &webServer{
		view:       v,
		csrfSecret: csrfSecret,
	}
	trace := newTraceMiddleware(cfg)

	r := mux.NewRouter()
	r.HandleFunc("/", trace("Index", s.index)).Methods(http.MethodGet)
	r.HandleFunc("/login", trace("Login", s.withCSRF(s.login))).Methods(http.MethodPost)
	r.HandleFunc("/logout", trace("Logout", s.withCSRF(s.logout))).Methods(http.MethodPost)
	r.HandleFunc("/send", trace("SendToBackend", s.withCSRF(s.send))).Methods(http.MethodPost)
	r.HandleFunc("/ping", trace("Ping", pingHandler)).Methods(http.MethodGet)
	r.Use(browsersession.Middleware(cfg.WebUI.SessionCookieTemplate))

	return r
}

func (s *webServer) index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := browsersession.SessionIDFromContext(ctx)
	if err != nil {
		slogctx.Error(ctx, "Failed to get the browser session", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	model, err := s.view.Model(ctx)
	if err != nil {
		slogctx.Error(ctx, "Failed to build the page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index.html", indexData{
		Model:     model,
		CSRFToken: csrf.NewToken(sessionID, s.csrfSecret),
	}); err != nil {
		slogctx.Error(ctx, "Failed to render the page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *webServer) login(w http.ResponseWriter, r *http.Request) {
	if err := s.view.Login(r.Context()); err != nil {
		logActionError(r.Context(), "Login failed", err)
	}
	redirectHome(w, r)
}

func (s *webServer) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.view.Logout(r.Context()); err != nil {
		logActionError(r.Context(), "Logout failed", err)
	}
	redirectHome(w, r)
}

func (s *webServer) send(w http.ResponseWriter, r *http.Request) {
	if _, err := s.view.SendToBackend(r.Context()); err != nil {
		logActionError(r.Context(), "Sending to the backend failed", err)
	}
	redirectHome(w, r)
}

// withCSRF rejects form posts whose token was not issued for the browser
// session of the request.
func (s *webServer) withCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionID, err := browsersession.SessionIDFromContext(ctx)
		if err == nil && !csrf.Validate(r.PostFormValue(csrfFormField), sessionID, s.csrfSecret) {
			err = serviceerr.ErrCSRFMismatch
		}
		if err != nil {
			slogctx.Warn(ctx, "Rejected form post", "error", err)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next(w, r)
	}
}

func logActionError(ctx context.Context, msg string, err error) {
	args := []any{"error", err}

	var httpErr *serviceerr.BackendHTTPError
	if errors.As(err, &httpErr) {
		args = append(args, "status", httpErr.Status, "body", httpErr.Body)
	}

	slogctx.Error(ctx, msg, args...)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/b2c-auth-demo/internal/config"
	"github.com/openkcm/b2c-auth-demo/internal/oidc"
	"github.com/openkcm/b2c-auth-demo/internal/serviceerr"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (map[string]any, error)
}

type apiErrorResponse struct {
	Detail string `json:"detail"`
}

type apiEndpointResponse struct {
	Message string         `json:"message"`
	User    map[string]any `json:"user"`
}

// apiServer is the protected demo backend the web UI talks to.
type apiServer struct {
	verifier TokenVerifier
}

func newAPIHandler(cfg *config.Config, verifier TokenVerifier) http.Handler {
	s := &apiServer{verifier: verifier}
	trace := newTraceMiddleware(cfg)

	r := mux.NewRouter()
	r.HandleFunc("/api/endpoint", trace("APIEndpoint", s.endpoint)).Methods(http.MethodPost)
	r.HandleFunc("/ping", trace("Ping", pingHandler)).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.APIServer.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(r)
}

func (s *apiServer) endpoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ok := bearerToken(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(ctx, w, http.StatusUnauthorized, apiErrorResponse{Detail: "Not authenticated"})
		return
	}

	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		status, detail := toAPIError(err)
		slogctx.Info(ctx, "Rejected access token", "status", status, "error", err)
		writeJSON(ctx, w, status, apiErrorResponse{Detail: detail})
		return
	}

	slogctx.Info(ctx, "User authenticated", "subject", claims["sub"])
	writeJSON(ctx, w, http.StatusOK, apiEndpointResponse{
		Message: "user authenticated",
		User:    claims,
	})
}

func toAPIError(err error) (int, string) {
	switch {
	case errors.Is(err, oidc.ErrKeySource):
		return http.StatusInternalServerError, "failed to get the public keys of the identity provider: " + err.Error()
	case errors.Is(err, serviceerr.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, serviceerr.ErrUnknownKey):
		return http.StatusUnauthorized, "public key not found for this token"
	default:
		return http.StatusUnauthorized, "invalid or expired token: " + err.Error()
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slogctx.Error(ctx, "Failed to write response", "error", err)
	}
}

package server

import (
	"net/http"

	slogctx "github.com/veqryn/slog-context"
)

func pingHandler(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write([]byte("{ \"result\": \"ping\" }")); err != nil {
		slogctx.Debug(req.Context(), "Failed to write ping response", "error", err)
	}
}

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/b2c-auth-demo/internal/config"
	"github.com/openkcm/b2c-auth-demo/internal/view"
)

// StartWebServer serves the demo page until ctx is cancelled.
func StartWebServer(ctx context.Context, cfg *config.Config, v *view.View, csrfSecret []byte) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           newWebHandler(cfg, v, csrfSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(ctx, server, cfg.HTTP.ShutdownTimeout)
}

// StartAPIServer serves the protected demo backend until ctx is cancelled.
func StartAPIServer(ctx context.Context, cfg *config.Config, verifier TokenVerifier) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.APIServer.Address,
		Handler:           newAPIHandler(cfg, verifier),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(ctx, server, cfg.APIServer.ShutdownTimeout)
}

func serve(ctx context.Context, server *http.Server, shutdownTimeout time.Duration) error {
	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	network, address := splitNetwork(server.Addr)
	listener, err := new(net.ListenConfig).Listen(ctx, network, address)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}

// splitNetwork parses addresses given as network://address, e.g.
// unix:///tmp/b2c-demo.sock. Plain addresses use tcp.
func splitNetwork(addr string) (string, string) {
	if idx := strings.Index(addr, "://"); idx > 0 {
		return addr[:idx], addr[idx+3:]
	}
	return "tcp", addr
}

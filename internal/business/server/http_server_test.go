package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/b2c-auth-demo/internal/config"
	"github.com/openkcm/b2c-auth-demo/internal/identity/identitymock"
	"github.com/openkcm/b2c-auth-demo/internal/view"
)

func TestStartServers_ContextCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP = config.HTTPServer{Address: "localhost:0", ShutdownTimeout: time.Second}
	cfg.APIServer.Address = "localhost:0"
	cfg.APIServer.ShutdownTimeout = time.Second

	tests := []struct {
		name  string
		start func(ctx context.Context) error
	}{
		{
			name: "web server",
			start: func(ctx context.Context) error {
				v := view.New(newTestProvider(t, identitymock.NewClient()), nil)
				return StartWebServer(ctx, cfg, v, []byte("0123456789abcdef0123456789abcdef"))
			},
		},
		{
			name: "api server",
			start: func(ctx context.Context) error {
				return StartAPIServer(ctx, cfg, nil)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())

			errChan := make(chan error, 1)
			go func() {
				errChan <- tt.start(ctx)
			}()

			time.Sleep(100 * time.Millisecond)
			cancel()

			select {
			case err := <-errChan:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("Server did not shut down within timeout")
			}
		})
	}
}

func TestStartWebServer_InvalidAddress(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP = config.HTTPServer{Address: "invalid-network://nowhere", ShutdownTimeout: time.Second}

	err := StartWebServer(t.Context(), cfg, nil, nil)
	assert.Error(t, err)
}

func TestSplitNetwork(t *testing.T) {
	tests := []struct {
		addr        string
		wantNetwork string
		wantAddress string
	}{
		{addr: ":5173", wantNetwork: "tcp", wantAddress: ":5173"},
		{addr: "localhost:8000", wantNetwork: "tcp", wantAddress: "localhost:8000"},
		{addr: "unix:///tmp/b2c-demo.sock", wantNetwork: "unix", wantAddress: "/tmp/b2c-demo.sock"},
		{addr: "tcp4://127.0.0.1:0", wantNetwork: "tcp4", wantAddress: "127.0.0.1:0"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			network, address := splitNetwork(tt.addr)
			assert.Equal(t, tt.wantNetwork, network)
			assert.Equal(t, tt.wantAddress, address)
		})
	}
}

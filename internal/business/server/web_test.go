package server

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/b2c-auth-demo/internal/backend"
	"github.com/openkcm/b2c-auth-demo/internal/identity/identitymock"
	"github.com/openkcm/b2c-auth-demo/internal/oidc"
	"github.com/openkcm/b2c-auth-demo/internal/oidc/oidctest"
	"github.com/openkcm/b2c-auth-demo/internal/view"
)

var testCSRFSecret = []byte("0123456789abcdef0123456789abcdef")

// backendPanel opens the panel showing the backend response. The class name
// alone also appears in the page's stylesheet.
const backendPanel = `<div class="backend-response">`

func startWebUI(t *testing.T, client *identitymock.Client, backendURL string) *browser {
	t.Helper()

	v := view.New(newTestProvider(t, client), backend.NewClient(backendURL, 0, nil))
	srv := httptest.NewServer(newWebHandler(testConfig(), v, testCSRFSecret))
	t.Cleanup(srv.Close)

	return newBrowser(t, srv.URL)
}

func startFakeBackend(t *testing.T, status int, body string) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv.URL + "/api/endpoint"
}

func TestWebUI_Flow(t *testing.T) {
	b := startWebUI(t, identitymock.NewClient(), startFakeBackend(t, http.StatusOK, `{"user":{"name":"Alice A."}}`))

	status, page := b.get("/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, `action="/login"`)
	assert.NotContains(t, page, `action="/logout"`)
	assert.NotContains(t, page, `action="/send"`)

	status, page = b.post("/login", csrfToken(t, page))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "Signed in with Azure as Alice A.")
	assert.Contains(t, page, `action="/logout"`)
	assert.Contains(t, page, `action="/send"`)
	assert.NotContains(t, page, `action="/login"`)
	assert.NotContains(t, page, backendPanel)

	status, page = b.post("/send", csrfToken(t, page))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, backendPanel)
	assert.Contains(t, page, "<p>Alice A.</p>")

	status, page = b.post("/logout", csrfToken(t, page))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, `action="/login"`)
	assert.NotContains(t, page, backendPanel)
}

func TestWebUI_ErrorsAreLoggedAndDropped(t *testing.T) {
	tests := []struct {
		name       string
		client     *identitymock.Client
		backend    string
		action     string
		wantInPage string
		wantLog    string
		wantAttrs  map[string]any
	}{
		{
			name:       "Login cancelled",
			client:     identitymock.NewClient(identitymock.WithInteractiveError(errors.New("user cancelled"))),
			backend:    startFakeBackend(t, http.StatusOK, `{}`),
			action:     "/login",
			wantInPage: `action="/login"`,
			wantLog:    "Login failed",
		},
		{
			name:       "Backend unauthorized",
			client:     identitymock.NewClient(identitymock.WithSignedIn(identitymock.Alice)),
			backend:    startFakeBackend(t, http.StatusUnauthorized, `{"error":"unauthorized"}`),
			action:     "/send",
			wantInPage: `action="/send"`,
			wantLog:    "Sending to the backend failed",
			wantAttrs: map[string]any{
				"status": "401 Unauthorized",
				"body":   map[string]any{"error": "unauthorized"},
			},
		},
		{
			name:       "Backend unreachable",
			client:     identitymock.NewClient(identitymock.WithSignedIn(identitymock.Alice)),
			backend:    "http://127.0.0.1:1/api/endpoint",
			action:     "/send",
			wantInPage: `action="/send"`,
			wantLog:    "Sending to the backend failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			b := startWebUI(t, tt.client, tt.backend)

			_, page := b.get("/")
			status, page := b.post(tt.action, csrfToken(t, page))

			require.Equal(t, http.StatusOK, status)
			assert.Contains(t, page, tt.wantInPage)
			assert.NotContains(t, page, backendPanel)

			rec, ok := logs.find(tt.wantLog)
			require.True(t, ok, "no %q record logged", tt.wantLog)
			assert.Equal(t, slog.LevelError, rec.Level)
			assert.NotNil(t, rec.Attrs["error"])
			for key, want := range tt.wantAttrs {
				assert.Equal(t, want, rec.Attrs[key], key)
			}
		})
	}
}

func TestWebUI_CSRF(t *testing.T) {
	client := identitymock.NewClient()
	b := startWebUI(t, client, startFakeBackend(t, http.StatusOK, `{}`))

	_, page := b.get("/")
	token := csrfToken(t, page)

	t.Run("Missing token", func(t *testing.T) {
		status, _ := b.post("/login", "")
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("Token of another browser", func(t *testing.T) {
		other := newBrowser(t, b.baseURL)
		status, _ := other.post("/login", token)
		assert.Equal(t, http.StatusForbidden, status)
	})

	assert.Zero(t, client.InteractiveCalls)

	t.Run("Wrong method", func(t *testing.T) {
		status, _ := b.get("/login")
		assert.Equal(t, http.StatusMethodNotAllowed, status)
	})
}

func TestWebUI_SendsToDemoBackend(t *testing.T) {
	provider := oidctest.Start(t)
	verifier := oidc.NewVerifier(oidc.NewKeySource(provider.DiscoveryURL(), 0, nil), provider.Issuer(), oidctest.Audience)

	api := httptest.NewServer(newAPIHandler(testConfig(), verifier))
	t.Cleanup(api.Close)

	client := identitymock.NewClient(identitymock.WithAccessToken(provider.Sign(t, oidctest.KeyID, provider.ValidClaims())))
	b := startWebUI(t, client, api.URL+"/api/endpoint")

	_, page := b.get("/")
	_, page = b.post("/login", csrfToken(t, page))
	_, page = b.post("/send", csrfToken(t, page))

	assert.Contains(t, page, "<p>Alice A.</p>")
}

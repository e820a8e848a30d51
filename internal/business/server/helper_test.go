package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openkcm/b2c-auth-demo/internal/identity"
	"github.com/openkcm/b2c-auth-demo/internal/session"
)

var csrfTokenPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func newTestProvider(t *testing.T, client identity.Client) *session.Provider {
	t.Helper()

	cfg, err := identity.NewConfiguration(
		"client-id",
		"https://contoso.b2clogin.com/contoso.onmicrosoft.com/B2C_1_signinsignup",
		[]string{"contoso.b2clogin.com"},
		"http://localhost",
		"",
		[]string{"https://contoso.onmicrosoft.com/demo/auth"},
	)
	require.NoError(t, err)

	return session.NewProvider(cfg, client)
}

// browser keeps cookies between requests like a real browser does.
type browser struct {
	t       *testing.T
	client  *http.Client
	baseURL string
}

func newBrowser(t *testing.T, baseURL string) *browser {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &browser{t: t, client: &http.Client{Jar: jar}, baseURL: baseURL}
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()

	resp, err := b.client.Get(b.baseURL + path)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)

	return resp.StatusCode, string(body)
}

// post submits a form the way the page does and follows the redirect.
func (b *browser) post(path, csrfToken string) (int, string) {
	b.t.Helper()

	resp, err := b.client.PostForm(b.baseURL+path, url.Values{"csrf_token": {csrfToken}})
	require.NoError(b.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)

	return resp.StatusCode, string(body)
}

func csrfToken(t *testing.T, page string) string {
	t.Helper()

	m := csrfTokenPattern.FindStringSubmatch(page)
	require.Len(t, m, 2, "page has no csrf token")

	return m[1]
}

type loggedRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// recordingHandler keeps every record logged through it, including the ones
// of loggers derived with With.
type recordingHandler struct {
	mu      *sync.Mutex
	records *[]loggedRecord
	attrs   []slog.Attr
}

// captureLogs makes a recordingHandler the default logger until the test ends.
func captureLogs(t *testing.T) *recordingHandler {
	t.Helper()

	h := &recordingHandler{mu: &sync.Mutex{}, records: &[]loggedRecord{}}

	prev := slog.Default()
	slog.SetDefault(slog.New(h))
	t.Cleanup(func() { slog.SetDefault(prev) })

	return h
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	rec := loggedRecord{Level: r.Level, Message: r.Message, Attrs: map[string]any{}}
	for _, a := range h.attrs {
		rec.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	*h.records = append(*h.records, rec)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{
		mu:      h.mu,
		records: h.records,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

// find returns the first record with the given message.
func (h *recordingHandler) find(msg string) (loggedRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, rec := range *h.records {
		if rec.Message == msg {
			return rec, true
		}
	}
	return loggedRecord{}, false
}

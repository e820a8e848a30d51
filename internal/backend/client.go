// Package backend calls the protected API endpoint with the user's access
// token.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/b2c-auth-demo/internal/serviceerr"
)

// maxBodySize limits how much of a backend answer is read.
const maxBodySize = 1 << 20

type Client struct {
	endpoint string
	timeout  time.Duration
	base     *http.Client
}

type Request struct {
	User string `json:"user"`
}

type Response struct {
	User struct {
		Name string `json:"name"`
	} `json:"user"`
}

// NewClient returns a client posting to endpoint. A zero timeout means the
// request is only bounded by the caller's context. A nil base uses
// http.DefaultClient.
func NewClient(endpoint string, timeout time.Duration, base *http.Client) *Client {
	if base == nil {
		base = http.DefaultClient
	}

	return &Client{
		endpoint: endpoint,
		timeout:  timeout,
		base:     base,
	}
}

// Send posts the given name with the access token as bearer and returns the
// user.name field of the answer.
func (c *Client) Send(ctx context.Context, accessToken, givenName string) (string, error) {
	body, err := json.Marshal(Request{User: givenName})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient(ctx, accessToken).Do(req)
	if err != nil {
		return "", &serviceerr.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", &serviceerr.NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody any
		if err := json.Unmarshal(data, &errBody); err != nil {
			slogctx.Debug(ctx, "Backend error body is not JSON", "error", err)
			errBody = nil
		}

		return "", &serviceerr.BackendHTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       errBody,
		}
	}

	var res Response
	if err := json.Unmarshal(data, &res); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if res.User.Name == "" {
		return "", errors.New("response does not contain user.name")
	}

	return res.User.Name, nil
}

// httpClient wraps the base client so that every request carries the token
// as bearer.
func (c *Client) httpClient(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	client.Timeout = c.timeout

	return client
}

// Package gateway owns the shared outbound HTTP client. Credential injection
// and the global 401 policy live in round-tripper stages composed once at
// construction, so no call site re-implements "is my session still valid".
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docu-man/documan/internal/credstore"
)

// Options carries the gateway's collaborators.
type Options struct {
	// Credentials supplies the token attached to every request.
	Credentials *credstore.Store
	// OnSessionExpired runs when a non-auth, non-demo request returns 401.
	// The application wires it to the forced-logout-and-redirect path.
	OnSessionExpired func()
	Logger           *slog.Logger
}

// Gateway is the single configured HTTP client for the document API.
type Gateway struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

// New builds the gateway for the given base URL and timeout.
func New(baseURL string, timeout time.Duration, opts Options) (*Gateway, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var transport http.RoundTripper = http.DefaultTransport
	transport = &unauthorizedTransport{next: transport, onExpired: opts.OnSessionExpired, logger: logger}
	transport = &tokenTransport{next: transport, creds: opts.Credentials}

	return &Gateway{
		base:   base,
		client: &http.Client{Timeout: timeout, Transport: transport},
		logger: logger,
	}, nil
}

// URL resolves path against the configured base address.
func (g *Gateway) URL(path string) string {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return g.base.String() + strings.TrimLeft(path, "/")
	}
	return g.base.ResolveReference(ref).String()
}

// PostJSON sends payload as a JSON body and normalizes the response envelope.
// A non-2xx status yields an *APIError carrying whatever envelope the server
// returned; a transport failure propagates as-is.
func (g *Gateway) PostJSON(ctx context.Context, path string, payload any) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL(path), bytes.NewReader(body))
	if err != nil {
		return Envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.send(req)
}

// PostMultipart sends a multipart form built by fill. The Content-Type with
// its boundary comes from the multipart writer and is never overridden by the
// credential middleware.
func (g *Gateway) PostMultipart(ctx context.Context, path string, fill func(*multipart.Writer) error) (Envelope, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := fill(w); err != nil {
		return Envelope{}, err
	}
	if err := w.Close(); err != nil {
		return Envelope{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL(path), &buf)
	if err != nil {
		return Envelope{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return g.send(req)
}

// Get streams the response body for binary endpoints (downloads, previews).
// The caller owns the returned reader.
func (g *Gateway) Get(ctx context.Context, path string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.URL(path), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, "", apiErrorFrom(resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// PostForStream sends a JSON payload and streams the binary response, used by
// the multi-document zip download.
func (g *Gateway) PostForStream(ctx context.Context, path string, payload any) (io.ReadCloser, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL(path), bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, "", apiErrorFrom(resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (g *Gateway) send(req *http.Request) (Envelope, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return Envelope{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Envelope{}, apiErrorFrom(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.logger.Warn("unexpected response shape", "path", req.URL.Path, "error", err)
		return Envelope{}, ErrUnexpectedResponse
	}
	return env, nil
}

func apiErrorFrom(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	if err == nil {
		// Best effort; an undecodable error body still yields a usable error.
		_ = json.Unmarshal(raw, &apiErr.Envelope)
	}
	return apiErr
}

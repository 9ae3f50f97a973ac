package gateway

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/docu-man/documan/internal/credstore"
	"github.com/docu-man/documan/internal/demo"
)

const tokenHeader = "token"

// tokenTransport attaches the stored credential to every outgoing request.
// Pre-auth calls simply go out without the header; the backend rejects them.
type tokenTransport struct {
	next  http.RoundTripper
	creds *credstore.Store
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.creds == nil {
		return t.next.RoundTrip(req)
	}
	token, ok := t.creds.Token()
	if !ok || req.Header.Get(tokenHeader) != "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set(tokenHeader, token)
	return t.next.RoundTrip(clone)
}

// unauthorizedTransport polices 401 responses. A 401 during the login
// handshake is a normal "invalid OTP" signal and passes through; a 401 under
// a synthetic demo token is expected, since those sessions never exist on the
// backend. Any other 401 means the session expired: the expiry hook clears
// the credential store and session state and redirects to login.
type unauthorizedTransport struct {
	next      http.RoundTripper
	onExpired func()
	logger    *slog.Logger
}

func (t *unauthorizedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		// Transport failure: no response was received, no auth-state change.
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if isAuthPath(req.URL.Path) {
		return resp, nil
	}
	if demo.IsToken(req.Header.Get(tokenHeader)) {
		t.logger.Debug("ignoring 401 under demo token", "path", req.URL.Path)
		return resp, nil
	}
	t.logger.Warn("session expired, forcing logout", "path", req.URL.Path)
	if t.onExpired != nil {
		t.onExpired()
	}
	return resp, nil
}

func isAuthPath(path string) bool {
	return strings.Contains(path, "generateOTP") || strings.Contains(path, "validateOTP")
}

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/docu-man/documan/internal/identity"
)

// ErrUnexpectedResponse marks a 2xx response whose body did not decode. It is
// always caller-recoverable: surface a retry message, never fatal.
var ErrUnexpectedResponse = errors.New("unexpected response from server, please try again")

// Envelope is the backend's loose response shape, decoded exactly once at the
// gateway boundary. The backend signals failure either via an HTTP error or
// via a 200 carrying status=false and a human-readable data/message field;
// nothing outside this package inspects the raw shape.
type Envelope struct {
	Status       *bool           `json:"status,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Message      string          `json:"message,omitempty"`
	Token        string          `json:"token,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
	Tags         json.RawMessage `json:"tags,omitempty"`
	Documents    json.RawMessage `json:"documents,omitempty"`
	RecordsTotal int             `json:"recordsTotal,omitempty"`
}

// OK reports whether the envelope carries an explicit false status flag.
// An absent flag counts as success; token presence is judged separately by
// the login flow.
func (e Envelope) OK() bool {
	return e.Status == nil || *e.Status
}

// Text returns the most specific human-readable message the envelope carries:
// the message field, else the data field when it is a plain string.
func (e Envelope) Text() string {
	if e.Message != "" {
		return e.Message
	}
	var s string
	if len(e.Data) > 0 && json.Unmarshal(e.Data, &s) == nil {
		return s
	}
	return ""
}

// Profile decodes the embedded user object, reporting whether one was present
// and decodable.
func (e Envelope) Profile() (identity.Profile, bool) {
	if len(e.User) == 0 {
		return identity.Profile{}, false
	}
	var p identity.Profile
	if err := json.Unmarshal(e.User, &p); err != nil {
		return identity.Profile{}, false
	}
	return p, true
}

// APIError is an HTTP-level rejection carrying whatever envelope the server
// managed to return.
type APIError struct {
	StatusCode int
	Envelope   Envelope
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if msg := e.Envelope.Text(); msg != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// UserMessage returns the most specific message available for display.
func (e *APIError) UserMessage() string {
	if msg := e.Envelope.Text(); msg != "" {
		return msg
	}
	return http.StatusText(e.StatusCode)
}

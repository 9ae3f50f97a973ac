package notification

import (
	"context"
	"log/slog"
	"sync"
)

const (
	// KindInfo marks an informational notice (e.g. "contact admin").
	KindInfo = "info"
	// KindSuccess marks a confirmation notice (e.g. "OTP sent").
	KindSuccess = "success"
	// KindError marks a user-recoverable failure notice.
	KindError = "error"
)

// Message describes a user-facing notice. Every surfaced failure produces
// exactly one of these; none are silently dropped.
type Message struct {
	Kind string
	Body string
}

// Notifier delivers notices to the user interface layer.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notices to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notice", "kind", message.Kind, "body", message.Body)
	return nil
}

// Capture records notices in memory so tests can assert on them.
type Capture struct {
	mu       sync.Mutex
	messages []Message
}

// NewCapture constructs an in-memory notifier for tests.
func NewCapture() *Capture {
	return &Capture{}
}

// Send appends the message to the captured list.
func (c *Capture) Send(_ context.Context, message Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	return nil
}

// Messages returns a copy of everything sent so far.
func (c *Capture) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Last returns the most recent message, if any.
func (c *Capture) Last() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Package notify shows transient toast messages on a page.
//
// Each page owns one Box holding at most one toast. Showing a new toast replaces the
// current one, and a toast disappears on its own once its TTL has passed.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"friendfeed/internal/observability"

	"github.com/google/uuid"
)

// Severity selects the toast's icon and colour.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// DefaultTTL is how long a toast stays visible when no TTL is configured.
const DefaultTTL = 5 * time.Second

// ParseSeverity folds unknown values to Info.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case Success:
		return Success
	case Warning:
		return Warning
	case Error:
		return Error
	default:
		return Info
	}
}

// Icon is the icon name shown next to the message.
func (s Severity) Icon() string {
	switch s {
	case Success:
		return "check-circle"
	case Warning:
		return "exclamation-triangle"
	case Error:
		return "times-circle"
	default:
		return "info-circle"
	}
}

// Color is the toast's accent colour.
func (s Severity) Color() string {
	switch s {
	case Success:
		return "#42b883"
	case Warning:
		return "#f39c12"
	case Error:
		return "#e74c3c"
	default:
		return "#0e4bf1"
	}
}

// Toast is one visible notification.
type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Page      string    `json:"page"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Box is one page's toast slot.
type Box struct {
	Current *Toast `json:"current,omitempty"`
}

// Active returns the current toast, or nil once it has expired.
func (b *Box) Active(now time.Time) *Toast {
	if b == nil || b.Current == nil {
		return nil
	}
	if !now.Before(b.Current.ExpiresAt) {
		return nil
	}
	return b.Current
}

// Dismiss removes the toast with id. A stale id leaves a newer toast in place.
func (b *Box) Dismiss(id string) bool {
	if b == nil || b.Current == nil || b.Current.ID != id {
		return false
	}
	b.Current = nil
	return true
}

// Publisher delivers toasts to a session's open pages.
type Publisher interface {
	PublishToast(ctx context.Context, sessionID string, payload []byte) error
}

// Notifier creates toasts.
type Notifier struct {
	ttl time.Duration
	now func() time.Time
	pub Publisher
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// WithPublisher pushes every toast to the session's realtime channel.
func WithPublisher(p Publisher) Option {
	return func(n *Notifier) { n.pub = p }
}

// NewNotifier creates a Notifier whose toasts live for ttl.
func NewNotifier(ttl time.Duration, opts ...Option) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	n := &Notifier{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// TTL is the lifetime of new toasts.
func (n *Notifier) TTL() time.Duration { return n.ttl }

// Show replaces box's toast with a new one. It never fails; push errors are only logged.
func (n *Notifier) Show(ctx context.Context, box *Box, page, message string, severity Severity) Toast {
	severity = ParseSeverity(string(severity))
	now := n.now()
	t := Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		Page:      page,
		CreatedAt: now,
		ExpiresAt: now.Add(n.ttl),
	}
	if box != nil {
		box.Current = &t
	}
	observability.ToastsShown.WithLabelValues(string(severity)).Inc()

	if n.pub == nil {
		return t
	}
	sessionID := observability.ExtractSessionID(ctx)
	if sessionID == "" {
		return t
	}
	payload, err := json.Marshal(Event{Type: EventToast, Payload: t})
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "encode toast", slog.String("error", err.Error()))
		return t
	}
	if err := n.pub.PublishToast(ctx, sessionID, payload); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "push toast", slog.String("error", err.Error()))
	}
	return t
}

// EventToast is the realtime event type carrying a Toast.
const EventToast = "toast"

// Event is the envelope pushed over the realtime channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

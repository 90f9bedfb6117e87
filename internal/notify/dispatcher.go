package notify

import (
	"context"

	"github.com/skillforge/platform/pkg/logger"
)

// Kind identifies the notification template to render downstream.
type Kind string

const (
	KindEmailVerification Kind = "email_verification"
	KindPasswordReset     Kind = "password_reset"
	KindPasswordChanged   Kind = "password_changed"
)

// Message is the payload handed to the delivery pipeline. The auth service
// never sends mail itself; it publishes and a worker renders and delivers.
type Message struct {
	Kind        Kind   `json:"kind"`
	Recipient   string `json:"recipient"`
	DisplayName string `json:"display_name,omitempty"`
	Token       string `json:"token,omitempty"`
}

// Dispatcher delivers notification messages. Implementations must be safe
// for concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// LogDispatcher writes notifications to the log instead of a broker. Used in
// development and as the fallback when the broker is not configured.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, msg Message) error {
	logger.InfoWithContext(ctx, "Notification dispatched to log").
		String("kind", string(msg.Kind)).
		String("recipient", msg.Recipient).
		Log()
	return nil
}

package notification

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSendTimeout bounds a post-commit send when callers set none.
const DefaultSendTimeout = 2 * time.Second

// Kinds of wallet events pushed to downstream systems.
const (
	KindTransferReceived = "transfer_received"
	KindGiftReceived     = "gift_received"
	KindDepositCredited  = "deposit_credited"
	KindRefundIssued     = "refund_issued"
)

// Message describes a notification payload. Destination is the owner id of the
// user being told.
type Message struct {
	Kind        string            `json:"kind"`
	Destination string            `json:"destination"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// SendDetached delivers msg after a commit. The send outlives the caller's
// cancellation but never runs longer than timeout.
func SendDetached(ctx context.Context, n Notifier, msg Message, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return n.Send(sendCtx, msg)
}

// LoggerNotifier writes notifications to the logger.
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
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

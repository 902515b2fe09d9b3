package worker

import (
	"context"
	"time"

	"github.com/raven-rwho/rem-expenses/internal/amqp"
	"github.com/raven-rwho/rem-expenses/internal/log"
)

// ConversionWorker adapts queue messages to the conversion handler.
type ConversionWorker struct {
	handler ConversionHandler
	logger  *log.Logger
	timeout time.Duration
}

func NewConversionWorker(handler ConversionHandler, timeout time.Duration, logger *log.Logger) *ConversionWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	if timeout <= 0 {
		timeout = DefaultPoolConfig().Timeout
	}
	return &ConversionWorker{handler: handler, logger: logger, timeout: timeout}
}

// HandleMessage is an amqp.Handler. Errors are storage failures and make the
// consumer requeue the message.
func (w *ConversionWorker) HandleMessage(ctx context.Context, msg *amqp.ConversionMessage) error {
	r := msg.Request
	w.logger.InfoContext(ctx, "Processing conversion message",
		append(log.NewFields().WithItem(r.DraftID, string(r.Category), r.ItemID, r.Revision).ToSlice(),
			"message_id", msg.MessageID,
			"queued_for", time.Since(msg.Timestamp).Round(time.Millisecond))...)

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.handler.Handle(ctx, r)
}

// Run consumes from the client until ctx is done, reconnecting on failures.
func (w *ConversionWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeWithReconnect(ctx, w.HandleMessage)
}

package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/log"

	"github.com/rabbitmq/amqp091-go"
)

// ErrDeliveriesClosed is returned by Consume when the broker closes the
// delivery channel.
var ErrDeliveriesClosed = errors.New("message channel closed")

// EventHandler processes one ledger event. Returning an error requeues the
// message.
type EventHandler func(ctx context.Context, ev LedgerEvent) error

// Consume delivers ledger events from the client's queue to handler until
// ctx is cancelled. Messages are acknowledged manually: undecodable ones are
// dropped, failed ones requeued.
func (c *Client) Consume(ctx context.Context, handler EventHandler) error {
	c.mu.Lock()
	if c.channel == nil || c.channel.IsClosed() {
		if err := c.connectLocked(); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentAMQP)
	logger.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			handleDelivery(ctx, logger.Logger, delivery, handler)
		}
	}
}

func handleDelivery(ctx context.Context, logger *slog.Logger, d amqp091.Delivery, handler EventHandler) {
	ev, err := LedgerEventFromJSON(d.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to decode ledger event", log.FieldError, err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			logger.WarnContext(ctx, "Failed to reject message", log.FieldError, nackErr)
		}
		return
	}

	if err := handler(ctx, ev); err != nil {
		logger.ErrorContext(ctx, "Failed to handle ledger event",
			log.FieldError, err,
			log.FieldEventKind, ev.Kind,
			log.FieldEntryID, ev.EntryID)
		if nackErr := d.Nack(false, true); nackErr != nil {
			logger.WarnContext(ctx, "Failed to requeue message", log.FieldError, nackErr)
		}
		return
	}

	if err := d.Ack(false); err != nil {
		logger.WarnContext(ctx, "Failed to acknowledge message", log.FieldError, err)
		return
	}
	logger.DebugContext(ctx, "Processed ledger event", log.FieldEventKind, ev.Kind, log.FieldEntryID, ev.EntryID)
}

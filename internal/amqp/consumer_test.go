package amqp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/rabbitmq/amqp091-go"
)

type recordingAcknowledger struct {
	acks     int
	nacks    int
	requeued bool
}

func (a *recordingAcknowledger) Ack(uint64, bool) error {
	a.acks++
	return nil
}

func (a *recordingAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacks++
	a.requeued = requeue
	return nil
}

func (a *recordingAcknowledger) Reject(_ uint64, requeue bool) error {
	a.nacks++
	a.requeued = requeue
	return nil
}

func TestHandleDelivery(t *testing.T) {
	valid, err := NewLedgerEvent(ExpenseCreated, "alice", "e-1").ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	tests := []struct {
		name         string
		body         []byte
		handlerErr   error
		wantCalled   bool
		wantAcks     int
		wantNacks    int
		wantRequeued bool
	}{
		{
			name:       "handled event is acknowledged",
			body:       valid,
			wantCalled: true,
			wantAcks:   1,
		},
		{
			name:         "handler failure requeues",
			body:         valid,
			handlerErr:   errors.New("downstream unavailable"),
			wantCalled:   true,
			wantNacks:    1,
			wantRequeued: true,
		},
		{
			name:      "malformed body is dropped",
			body:      []byte(`{"kind":`),
			wantNacks: 1,
		},
		{
			name:      "unknown kind is dropped",
			body:      []byte(`{"kind":"expense.exploded","owner_id":"alice","entry_id":"e-1"}`),
			wantNacks: 1,
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &recordingAcknowledger{}
			called := false
			handler := func(_ context.Context, ev LedgerEvent) error {
				called = true
				if ev.Kind != ExpenseCreated || ev.OwnerID != "alice" || ev.EntryID != "e-1" {
					t.Errorf("unexpected event %+v", ev)
				}
				return tt.handlerErr
			}

			handleDelivery(context.Background(), logger, amqp091.Delivery{Acknowledger: ack, Body: tt.body}, handler)

			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if ack.acks != tt.wantAcks || ack.nacks != tt.wantNacks {
				t.Errorf("acks/nacks = %d/%d, want %d/%d", ack.acks, ack.nacks, tt.wantAcks, tt.wantNacks)
			}
			if ack.requeued != tt.wantRequeued {
				t.Errorf("requeued = %v, want %v", ack.requeued, tt.wantRequeued)
			}
		})
	}
}

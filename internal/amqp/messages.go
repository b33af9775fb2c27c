package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names a ledger mutation, e.g. "expense.created".
type EventKind string

const (
	ExpenseCreated EventKind = "expense.created"
	ExpenseUpdated EventKind = "expense.updated"
	ExpenseDeleted EventKind = "expense.deleted"
	IncomeCreated  EventKind = "income.created"
	IncomeUpdated  EventKind = "income.updated"
	IncomeDeleted  EventKind = "income.deleted"
	BudgetUpserted EventKind = "budget.upserted"
	BudgetDeleted  EventKind = "budget.deleted"
)

var eventKinds = map[EventKind]struct{}{
	ExpenseCreated: {}, ExpenseUpdated: {}, ExpenseDeleted: {},
	IncomeCreated: {}, IncomeUpdated: {}, IncomeDeleted: {},
	BudgetUpserted: {}, BudgetDeleted: {},
}

func (k EventKind) Valid() bool {
	_, ok := eventKinds[k]
	return ok
}

// LedgerEvent notifies downstream consumers that an owner's ledger changed.
// It carries ids only; consumers read the current state from the API.
type LedgerEvent struct {
	Kind       EventKind `json:"kind"`
	OwnerID    string    `json:"owner_id"`
	EntryID    string    `json:"entry_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewLedgerEvent(kind EventKind, ownerID, entryID string) LedgerEvent {
	return LedgerEvent{
		Kind:       kind,
		OwnerID:    ownerID,
		EntryID:    entryID,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown kinds.
func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return LedgerEvent{}, err
	}
	if !ev.Kind.Valid() {
		return LedgerEvent{}, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return ev, nil
}

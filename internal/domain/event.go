package domain

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventUserCreated     EventType = "USER_CREATED"
	EventUserUpdated     EventType = "USER_UPDATED"
	EventUserDeleted     EventType = "USER_DELETED"
	EventItemCreated     EventType = "ITEM_CREATED"
	EventStockUpdated    EventType = "STOCK_UPDATED"
	EventLoanCreated     EventType = "LOAN_CREATED"
	EventStockReserved   EventType = "STOCK_RESERVED"
	EventStockReleased   EventType = "STOCK_RELEASED"
	EventLoanReturned    EventType = "LOAN_RETURNED"
	EventReturnCancelled EventType = "RETURN_CANCELLED"
)

// EventTypes is the closed vocabulary accepted by the event log.
var EventTypes = []EventType{
	EventUserCreated,
	EventUserUpdated,
	EventUserDeleted,
	EventItemCreated,
	EventStockUpdated,
	EventLoanCreated,
	EventStockReserved,
	EventStockReleased,
	EventLoanReturned,
	EventReturnCancelled,
}

func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is an immutable audit record. Sequence, PrevHash and Hash are
// assigned when the event is appended and chain each event to its predecessor.
type Event struct {
	ID        string          `json:"id"`
	Sequence  int64           `json:"sequence"`
	Type      EventType       `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	LoanID    *string         `json:"loan_id,omitempty"`
	UserID    *string         `json:"user_id,omitempty"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
}

// EventFilter narrows event listings. Zero values mean "any".
type EventFilter struct {
	Type   EventType
	LoanID string
	UserID string
	Limit  int
}

// ChainReport is the outcome of walking the event log hash chain.
type ChainReport struct {
	Checked      int64  `json:"checked"`
	Valid        bool   `json:"valid"`
	HeadSequence int64  `json:"head_sequence"`
	HeadHash     string `json:"head_hash"`
	BrokenAt     int64  `json:"broken_at,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Event payloads. Keys follow the camelCase wire format of the audit log.

type UserCreatedPayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type UserUpdatedPayload struct {
	UserID  string      `json:"userId"`
	Changes UserChanges `json:"changes"`
}

type UserDeletedPayload struct {
	UserID string `json:"userId"`
}

type ItemCreatedPayload struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

type StockUpdatedPayload struct {
	ItemID            string `json:"itemId"`
	PreviousTotal     int32  `json:"previousTotal"`
	NewTotal          int32  `json:"newTotal"`
	PreviousAvailable int32  `json:"previousAvailable"`
	NewAvailable      int32  `json:"newAvailable"`
}

type LoanCreatedPayload struct {
	LoanID          string   `json:"loanId"`
	UserID          string   `json:"userId"`
	Items           []string `json:"items"`
	StartDate       string   `json:"startDate"`
	ExpectedEndDate string   `json:"expectedEndDate"`
}

type StockMovementPayload struct {
	ItemID   string `json:"itemId"`
	Quantity int32  `json:"quantity"`
	LoanID   string `json:"loanId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type LoanReturnedPayload struct {
	LoanID    string  `json:"loanId"`
	Condition *string `json:"condition"`
	Notes     *string `json:"notes"`
}

type ReturnCancelledPayload struct {
	LoanID      string  `json:"loanId"`
	Reason      *string `json:"reason"`
	CancelledAt string  `json:"cancelledAt"`
}

// ReasonReturnCancelled tags reservations made by reopening a returned loan.
const ReasonReturnCancelled = "return_cancelled"

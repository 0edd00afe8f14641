package payment

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type EventType string

const (
	EventSucceeded  EventType = "payment.succeeded"
	EventFailed     EventType = "payment.failed"
	EventCancelled  EventType = "payment.cancelled"
	EventProcessing EventType = "payment.processing"
)

func (t EventType) Known() bool {
	switch t {
	case EventSucceeded, EventFailed, EventCancelled, EventProcessing:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrNotFound         = errors.New("payment not found")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMissingMetadata  = errors.New("payment metadata is missing user_id or session_id")
)

// Snapshot is the gateway side view of a payment carried by an event.
type Snapshot struct {
	PaymentID   string
	Status      string
	Currency    string
	TotalAmount int64
	Billing     json.RawMessage
	Customer    json.RawMessage
}

// Complete reports whether the snapshot carries everything an email needs.
func (s Snapshot) Complete() bool {
	return s.Currency != "" && s.TotalAmount > 0
}

// Metadata is what checkout attached to the payment, keys as sent by the gateway.
type Metadata map[string]string

func (m Metadata) UserID() string    { return m["user_id"] }
func (m Metadata) SessionID() string { return m["session_id"] }

// Credits returns 0 when absent or not a number.
func (m Metadata) Credits() int {
	n, err := strconv.Atoi(m["credits"])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Event is a verified webhook delivery normalized across providers.
type Event struct {
	ID           string
	Type         EventType
	Snapshot     Snapshot
	Metadata     Metadata
	ErrorMessage string
}

type Payment struct {
	ID               int
	UserID           string
	SessionID        string
	PaymentID        string
	Status           Status
	Currency         string
	TotalAmount      int64
	Credits          int
	CreditsFulfilled bool
	EmailSent        bool
	FailureReason    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

package domain

import "time"

// Event types
const (
	EventTypeParticipantAdded = "session.participant_added"
	EventTypeDebtCreated      = "debt.created"
)

// Aggregate types
const (
	AggregateTypeSession = "session"
	AggregateTypeDebt    = "debt"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// ParticipantAddedEvent payload
type ParticipantAddedEvent struct {
	SessionID   string `json:"session_id"`
	AddedBy     string `json:"added_by"`
	AddedByName string `json:"added_by_name"`
	Participant string `json:"participant"`
}

// DebtCreatedEvent payload
type DebtCreatedEvent struct {
	DebtID     string `json:"debt_id"`
	SessionID  string `json:"session_id"`
	OwedBy     string `json:"owed_by"`
	OwedTo     string `json:"owed_to"`
	OwedToName string `json:"owed_to_name"`
	Amount     string `json:"amount"`
}

// Payload flattens the event into an outbox payload.
func (e ParticipantAddedEvent) Payload() map[string]any {
	return map[string]any{
		"session_id":    e.SessionID,
		"added_by":      e.AddedBy,
		"added_by_name": e.AddedByName,
		"participant":   e.Participant,
	}
}

// Payload flattens the event into an outbox payload.
func (e DebtCreatedEvent) Payload() map[string]any {
	return map[string]any{
		"debt_id":      e.DebtID,
		"session_id":   e.SessionID,
		"owed_by":      e.OwedBy,
		"owed_to":      e.OwedTo,
		"owed_to_name": e.OwedToName,
		"amount":       e.Amount,
	}
}

package models

import "time"

type IntentStatus string

const (
	StatusWaiting    IntentStatus = "waiting"
	StatusProcessing IntentStatus = "processing"
	StatusCompleted  IntentStatus = "completed"
	StatusFailed     IntentStatus = "failed"
	StatusExpired    IntentStatus = "expired"
)

// Terminal reports whether the status is a sink in the intent state machine.
func (s IntentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// PurchaseIntent is a persisted request to buy Quantity tickets for an event.
// The intent id doubles as the purchase id on the tickets issued for it, so a
// completed intent and its tickets are bound without a second identifier.
type PurchaseIntent struct {
	ID        string       `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   string       `gorm:"type:uuid;not null;index:idx_intents_event_arrival,priority:1;index:idx_intents_session_event,priority:2" json:"event_id"`
	SessionID string       `gorm:"type:varchar(255);not null;index;index:idx_intents_session_event,priority:1" json:"session_id"`
	Quantity  int          `gorm:"not null" json:"quantity"`
	Arrival   int64        `gorm:"not null;index:idx_intents_event_arrival,priority:2" json:"arrival"`
	Status    IntentStatus `gorm:"type:varchar(20);not null;default:'waiting';index" json:"status"`
	// FailureReason records why a failed or expired intent terminated.
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"event,omitempty"`
}

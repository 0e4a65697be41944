package models

import "time"

type Ticket struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	EventID    string    `gorm:"type:uuid;not null;index" json:"event_id"`
	PurchaseID string    `gorm:"type:uuid;not null;index" json:"purchase_id"`
	IssuedAt   time.Time `gorm:"not null;index" json:"issued_at"`

	Event *Event `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"event,omitempty"`
}

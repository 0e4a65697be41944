package models

import "time"

type Event struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string    `gorm:"not null" json:"name"`
	StartsAt         time.Time `gorm:"not null" json:"starts_at"`
	TotalTickets     int       `gorm:"not null" json:"total_tickets"`
	AvailableTickets int       `gorm:"not null" json:"available_tickets"`
	Version          int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Purchasable reports whether the event can still accept purchase intents.
// The authoritative inventory check happens inside the allocator transaction;
// this is the intake fast path.
func (e *Event) Purchasable(now time.Time) bool {
	return e.StartsAt.After(now) && e.AvailableTickets > 0
}

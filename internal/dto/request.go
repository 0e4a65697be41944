package dto

import "time"

type CreateEventRequest struct {
	Name         string    `json:"name"`
	StartsAt     time.Time `json:"starts_at"`
	TotalTickets int       `json:"total_tickets"`
}

type SubmitIntentRequest struct {
	SessionID string `json:"session_id"`
	Quantity  int    `json:"quantity"`
}

type CancelIntentRequest struct {
	SessionID string `json:"session_id"`
}

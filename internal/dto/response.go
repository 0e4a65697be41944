package dto

import (
	"time"

	"github.com/tylerhoskins/ticketing-platform/internal/models"
	"github.com/tylerhoskins/ticketing-platform/internal/service"
)

type EventResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	StartsAt         time.Time `json:"starts_at"`
	TotalTickets     int       `json:"total_tickets"`
	AvailableTickets int       `json:"available_tickets"`
	CreatedAt        time.Time `json:"created_at"`
}

type SubmitIntentResponse struct {
	Success              bool                `json:"success"`
	IntentID             string              `json:"intent_id"`
	QueuePosition        int64               `json:"queue_position"`
	EstimatedWaitSeconds int64               `json:"estimated_wait_seconds"`
	Status               models.IntentStatus `json:"status"`
}

type TicketResponse struct {
	ID       string    `json:"id"`
	EventID  string    `json:"event_id"`
	IssuedAt time.Time `json:"issued_at"`
}

type PurchaseResult struct {
	Success     bool             `json:"success"`
	PurchaseID  string           `json:"purchase_id,omitempty"`
	TicketCount int              `json:"ticket_count,omitempty"`
	Tickets     []TicketResponse `json:"tickets,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

type IntentStatusResponse struct {
	IntentID             string              `json:"intent_id"`
	Status               models.IntentStatus `json:"status"`
	QueuePosition        *int64              `json:"queue_position,omitempty"`
	EstimatedWaitSeconds *int64              `json:"estimated_wait_seconds,omitempty"`
	Event                *EventResponse      `json:"event,omitempty"`
	PurchaseResult       *PurchaseResult     `json:"purchase_result,omitempty"`
}

type CompletionResponse struct {
	Status           models.IntentStatus `json:"status"`
	Success          bool                `json:"success"`
	PurchaseID       string              `json:"purchase_id,omitempty"`
	Tickets          []TicketResponse    `json:"tickets,omitempty"`
	ProcessingTimeMS int64               `json:"processing_time_ms,omitempty"`
	Message          string              `json:"message,omitempty"`
}

type CancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToEventResponse(e *models.Event) EventResponse {
	return EventResponse{
		ID:               e.ID,
		Name:             e.Name,
		StartsAt:         e.StartsAt,
		TotalTickets:     e.TotalTickets,
		AvailableTickets: e.AvailableTickets,
		CreatedAt:        e.CreatedAt,
	}
}

func ToSubmitIntentResponse(h *service.IntentHandle) SubmitIntentResponse {
	return SubmitIntentResponse{
		Success:              true,
		IntentID:             h.IntentID,
		QueuePosition:        h.QueuePosition,
		EstimatedWaitSeconds: h.EstimatedWaitSeconds,
		Status:               h.Status,
	}
}

func ToTicketResponses(tickets []models.Ticket) []TicketResponse {
	resp := make([]TicketResponse, len(tickets))
	for i, t := range tickets {
		resp[i] = TicketResponse{ID: t.ID, EventID: t.EventID, IssuedAt: t.IssuedAt}
	}
	return resp
}

func ToIntentStatusResponse(v *service.IntentStatusView) IntentStatusResponse {
	resp := IntentStatusResponse{
		IntentID: v.Intent.ID,
		Status:   v.Intent.Status,
	}
	if v.Event != nil {
		ev := ToEventResponse(v.Event)
		resp.Event = &ev
	}

	if !v.Intent.Status.Terminal() {
		pos, wait := v.QueuePosition, v.EstimatedWaitSeconds
		resp.QueuePosition = &pos
		resp.EstimatedWaitSeconds = &wait
		return resp
	}

	result := &PurchaseResult{Success: v.Intent.Status == models.StatusCompleted}
	if result.Success {
		result.PurchaseID = v.Intent.ID
		result.TicketCount = len(v.Tickets)
		result.Tickets = ToTicketResponses(v.Tickets)
	} else {
		result.Reason = v.Intent.FailureReason
	}
	resp.PurchaseResult = result
	return resp
}

func ToCompletionResponse(v *service.CompletionView) CompletionResponse {
	resp := CompletionResponse{
		Status:           v.Intent.Status,
		Success:          v.Intent.Status == models.StatusCompleted,
		ProcessingTimeMS: v.ProcessingTimeMS,
	}
	if resp.Success {
		resp.PurchaseID = v.Intent.ID
		resp.Tickets = ToTicketResponses(v.Tickets)
	} else {
		resp.Message = v.Intent.FailureReason
	}
	return resp
}

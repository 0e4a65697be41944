package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tylerhoskins/ticketing-platform/internal/cache"
	"github.com/tylerhoskins/ticketing-platform/internal/models"
	"github.com/tylerhoskins/ticketing-platform/internal/repository"
	"gorm.io/gorm"
)

// IntentStatusView is the read projection for a single intent. QueuePosition
// and EstimatedWaitSeconds are meaningful only while the intent is active;
// Tickets is populated only for completed intents.
type IntentStatusView struct {
	Intent               *models.PurchaseIntent
	Event                *models.Event
	QueuePosition        int64
	EstimatedWaitSeconds int64
	Tickets              []models.Ticket
}

type EventQueueStats struct {
	EventID          string `json:"event_id"`
	Waiting          int64  `json:"waiting"`
	Processing       int64  `json:"processing"`
	Completed        int64  `json:"completed"`
	Failed           int64  `json:"failed"`
	Expired          int64  `json:"expired"`
	TotalActive      int64  `json:"total_active"`
	TotalTickets     int    `json:"total_tickets"`
	AvailableTickets int    `json:"available_tickets"`
	TicketsIssued    int64  `json:"tickets_issued"`
}

type CompletionView struct {
	Intent           *models.PurchaseIntent
	Tickets          []models.Ticket
	ProcessingTimeMS int64
}

type QueueService interface {
	Position(ctx context.Context, intentID string) (*IntentStatusView, error)
	Stats(ctx context.Context, eventID string) (*EventQueueStats, error)
	Completion(ctx context.Context, intentID string) (*CompletionView, error)
	Cancel(ctx context.Context, intentID, sessionID string) error
}

type queueService struct {
	intentRepo   repository.IntentRepository
	eventRepo    repository.EventRepository
	ticketRepo   repository.TicketRepository
	statsCache   *cache.StatsCache
	waitEstimate time.Duration
}

func NewQueueService(intentRepo repository.IntentRepository, eventRepo repository.EventRepository, ticketRepo repository.TicketRepository, statsCache *cache.StatsCache, waitEstimate time.Duration) QueueService {
	return &queueService{
		intentRepo:   intentRepo,
		eventRepo:    eventRepo,
		ticketRepo:   ticketRepo,
		statsCache:   statsCache,
		waitEstimate: waitEstimate,
	}
}

func (s *queueService) Position(ctx context.Context, intentID string) (*IntentStatusView, error) {
	intent, err := s.findIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	view := &IntentStatusView{Intent: intent}
	if event, err := s.eventRepo.FindByID(ctx, intent.EventID); err == nil {
		view.Event = event
	}

	if intent.Status.Terminal() {
		if intent.Status == models.StatusCompleted {
			tickets, err := s.ticketRepo.FindByPurchaseID(ctx, intent.ID)
			if err != nil {
				return nil, fmt.Errorf("load tickets: %w", err)
			}
			view.Tickets = tickets
		}
		return view, nil
	}

	ahead, err := s.intentRepo.CountAhead(ctx, intent.EventID, intent.Arrival, intent.ID)
	if err != nil {
		return nil, fmt.Errorf("count queue position: %w", err)
	}
	view.QueuePosition = ahead + 1
	view.EstimatedWaitSeconds = ahead * int64(s.waitEstimate/time.Second)
	return view, nil
}

func (s *queueService) Stats(ctx context.Context, eventID string) (*EventQueueStats, error) {
	cacheKey := "queue:stats:" + eventID
	var cached EventQueueStats
	if s.statsCache.Get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("look up event: %w", err)
	}

	counts, err := s.intentRepo.StatsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count intents: %w", err)
	}
	issued, err := s.ticketRepo.CountByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}

	stats := &EventQueueStats{
		EventID:          eventID,
		Waiting:          counts[models.StatusWaiting],
		Processing:       counts[models.StatusProcessing],
		Completed:        counts[models.StatusCompleted],
		Failed:           counts[models.StatusFailed],
		Expired:          counts[models.StatusExpired],
		TotalTickets:     event.TotalTickets,
		AvailableTickets: event.AvailableTickets,
		TicketsIssued:    issued,
	}
	stats.TotalActive = stats.Waiting + stats.Processing

	s.statsCache.Set(ctx, cacheKey, stats)
	return stats, nil
}

func (s *queueService) Completion(ctx context.Context, intentID string) (*CompletionView, error) {
	intent, err := s.findIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if !intent.Status.Terminal() {
		return nil, ErrNotReady
	}

	view := &CompletionView{
		Intent:           intent,
		ProcessingTimeMS: intent.UpdatedAt.Sub(intent.CreatedAt).Milliseconds(),
	}
	if intent.Status == models.StatusCompleted {
		tickets, err := s.ticketRepo.FindByPurchaseID(ctx, intent.ID)
		if err != nil {
			return nil, fmt.Errorf("load tickets: %w", err)
		}
		view.Tickets = tickets
	}
	return view, nil
}

// Cancel transitions a still-waiting intent to expired, authorized by the
// owning session. Tickets already issued are never revoked.
func (s *queueService) Cancel(ctx context.Context, intentID, sessionID string) error {
	intent, err := s.findIntent(ctx, intentID)
	if err != nil {
		return err
	}
	if intent.SessionID != sessionID {
		return ErrForbidden
	}
	if intent.Status.Terminal() {
		return fmt.Errorf("%w: status is %s", ErrNotCancellable, intent.Status)
	}

	ok, err := s.intentRepo.CancelWaiting(ctx, intentID)
	if err != nil {
		return fmt.Errorf("cancel intent: %w", err)
	}
	if !ok {
		// Lost the race with the processor's claim; the outcome stands.
		return fmt.Errorf("%w: intent is already being processed", ErrNotCancellable)
	}
	return nil
}

func (s *queueService) findIntent(ctx context.Context, intentID string) (*models.PurchaseIntent, error) {
	intent, err := s.intentRepo.FindByID(ctx, intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("look up intent: %w", err)
	}
	return intent, nil
}

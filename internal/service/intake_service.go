package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tylerhoskins/ticketing-platform/internal/models"
	"github.com/tylerhoskins/ticketing-platform/internal/repository"
	"gorm.io/gorm"
)

const (
	MinQuantity     = 1
	MaxQuantity     = 10
	MaxSessionIDLen = 255
)

// IntentHandle is what a buyer gets back after submitting a purchase request.
type IntentHandle struct {
	IntentID             string
	QueuePosition        int64
	EstimatedWaitSeconds int64
	Status               models.IntentStatus
}

type IntakeService interface {
	Submit(ctx context.Context, eventID, sessionID string, quantity int) (*IntentHandle, error)
}

type intakeService struct {
	intentRepo   repository.IntentRepository
	eventRepo    repository.EventRepository
	clock        *ArrivalClock
	waitEstimate time.Duration
}

func NewIntakeService(intentRepo repository.IntentRepository, eventRepo repository.EventRepository, clock *ArrivalClock, waitEstimate time.Duration) IntakeService {
	return &intakeService{
		intentRepo:   intentRepo,
		eventRepo:    eventRepo,
		clock:        clock,
		waitEstimate: waitEstimate,
	}
}

// Submit admits a purchase request into the fair queue. Resubmitting while a
// previous intent for the same (session, event) is still active returns that
// intent's handle instead of creating a second one.
func (s *intakeService) Submit(ctx context.Context, eventID, sessionID string, quantity int) (*IntentHandle, error) {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return nil, fmt.Errorf("%w: quantity must be between %d and %d", ErrInvalidRequest, MinQuantity, MaxQuantity)
	}
	if sessionID == "" || len(sessionID) > MaxSessionIDLen {
		return nil, fmt.Errorf("%w: session_id must be 1-%d characters", ErrInvalidRequest, MaxSessionIDLen)
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, fmt.Errorf("%w: malformed event id", ErrInvalidRequest)
	}

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("look up event: %w", err)
	}

	// Fast-path availability check; the allocator re-checks under the lock.
	if !event.Purchasable(time.Now()) {
		return nil, ErrEventUnavailable
	}

	if existing, err := s.intentRepo.FindActiveBySessionAndEvent(ctx, sessionID, eventID); err == nil {
		return s.handleFor(ctx, existing)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up existing intent: %w", err)
	}

	intent := &models.PurchaseIntent{
		ID:        uuid.NewString(),
		EventID:   eventID,
		SessionID: sessionID,
		Quantity:  quantity,
		Arrival:   s.clock.Next(),
		Status:    models.StatusWaiting,
	}
	if err := s.intentRepo.Create(ctx, intent); err != nil {
		// A concurrent submit for the same (session, event) can win the
		// partial unique index race; hand back the winner's intent.
		if existing, lookupErr := s.intentRepo.FindActiveBySessionAndEvent(ctx, sessionID, eventID); lookupErr == nil {
			return s.handleFor(ctx, existing)
		}
		return nil, fmt.Errorf("create intent: %w", err)
	}

	return s.handleFor(ctx, intent)
}

func (s *intakeService) handleFor(ctx context.Context, intent *models.PurchaseIntent) (*IntentHandle, error) {
	ahead, err := s.intentRepo.CountAhead(ctx, intent.EventID, intent.Arrival, intent.ID)
	if err != nil {
		return nil, fmt.Errorf("count queue position: %w", err)
	}
	return &IntentHandle{
		IntentID:             intent.ID,
		QueuePosition:        ahead + 1,
		EstimatedWaitSeconds: ahead * int64(s.waitEstimate/time.Second),
		Status:               intent.Status,
	}, nil
}

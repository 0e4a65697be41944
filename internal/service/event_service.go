package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tylerhoskins/ticketing-platform/internal/models"
	"github.com/tylerhoskins/ticketing-platform/internal/repository"
	"github.com/tylerhoskins/ticketing-platform/pkg/rabbitmq"
)

type EventService interface {
	CreateEvent(ctx context.Context, name string, startsAt time.Time, totalTickets int) (*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
}

type eventService struct {
	repo      repository.EventRepository
	publisher *rabbitmq.Publisher
}

func NewEventService(repo repository.EventRepository, publisher *rabbitmq.Publisher) EventService {
	return &eventService{repo: repo, publisher: publisher}
}

func (s *eventService) CreateEvent(ctx context.Context, name string, startsAt time.Time, totalTickets int) (*models.Event, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if totalTickets < 0 {
		return nil, fmt.Errorf("%w: total_tickets must be non-negative", ErrInvalidRequest)
	}

	event := &models.Event{
		ID:               uuid.NewString(),
		Name:             name,
		StartsAt:         startsAt,
		TotalTickets:     totalTickets,
		AvailableTickets: totalTickets,
		Version:          1,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("event.created", event)
	}

	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *eventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.repo.FindAll(ctx)
}

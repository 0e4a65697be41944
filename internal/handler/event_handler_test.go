package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tylerhoskins/ticketing-platform/internal/dto"
	"github.com/tylerhoskins/ticketing-platform/internal/models"
	"github.com/tylerhoskins/ticketing-platform/internal/service"
)

// --- Mock EventService ---

type mockEventService struct {
	createFn func(ctx context.Context, name string, startsAt time.Time, totalTickets int) (*models.Event, error)
	getFn    func(ctx context.Context, id string) (*models.Event, error)
	listFn   func(ctx context.Context) ([]models.Event, error)
}

func (m *mockEventService) CreateEvent(ctx context.Context, name string, startsAt time.Time, totalTickets int) (*models.Event, error) {
	return m.createFn(ctx, name, startsAt, totalTickets)
}
func (m *mockEventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return m.getFn(ctx, id)
}
func (m *mockEventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return m.listFn(ctx)
}

func TestCreateEvent_Success(t *testing.T) {
	svc := &mockEventService{
		createFn: func(ctx context.Context, name string, startsAt time.Time, totalTickets int) (*models.Event, error) {
			return &models.Event{
				ID:               uuid.NewString(),
				Name:             name,
				StartsAt:         startsAt,
				TotalTickets:     totalTickets,
				AvailableTickets: totalTickets,
				Version:          1,
				CreatedAt:        time.Now(),
			}, nil
		},
	}

	e := echo.New()
	body := `{"name":"Riverside Open Air","starts_at":"2026-09-01T19:00:00Z","total_tickets":500}`
	c, rec := newContext(e, http.MethodPost, "/api/v1/events", body)

	h := NewEventHandler(svc, &mockQueueService{})
	require.NoError(t, h.CreateEvent(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Riverside Open Air", resp.Name)
	assert.Equal(t, 500, resp.TotalTickets)
	assert.Equal(t, 500, resp.AvailableTickets)
}

func TestCreateEvent_Invalid(t *testing.T) {
	svc := &mockEventService{
		createFn: func(ctx context.Context, name string, startsAt time.Time, totalTickets int) (*models.Event, error) {
			return nil, service.ErrInvalidRequest
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodPost, "/api/v1/events", `{"name":""}`)

	h := NewEventHandler(svc, &mockQueueService{})
	err := h.CreateEvent(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestGetQueueStats(t *testing.T) {
	eventID := uuid.NewString()
	queue := &mockQueueService{
		statsFn: func(ctx context.Context, evID string) (*service.EventQueueStats, error) {
			return &service.EventQueueStats{
				EventID:       evID,
				Waiting:       12,
				Processing:    1,
				Completed:     30,
				TotalActive:   13,
				TotalTickets:  100,
				TicketsIssued: 60,
			}, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodGet, "/api/v1/events/"+eventID+"/queue/stats", "")
	c.SetParamNames("id")
	c.SetParamValues(eventID)

	h := NewEventHandler(&mockEventService{}, queue)
	require.NoError(t, h.GetQueueStats(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp service.EventQueueStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(12), resp.Waiting)
	assert.Equal(t, int64(13), resp.TotalActive)
}

func TestGetQueueStats_EventNotFound(t *testing.T) {
	queue := &mockQueueService{
		statsFn: func(ctx context.Context, evID string) (*service.EventQueueStats, error) {
			return nil, service.ErrEventNotFound
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodGet, "/api/v1/events/x/queue/stats", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	h := NewEventHandler(&mockEventService{}, queue)
	err := h.GetQueueStats(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

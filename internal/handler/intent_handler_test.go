package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tylerhoskins/ticketing-platform/internal/dto"
	"github.com/tylerhoskins/ticketing-platform/internal/models"
	"github.com/tylerhoskins/ticketing-platform/internal/processor"
	"github.com/tylerhoskins/ticketing-platform/internal/service"
)

// --- Mock IntakeService ---

type mockIntakeService struct {
	submitFn func(ctx context.Context, eventID, sessionID string, quantity int) (*service.IntentHandle, error)
}

func (m *mockIntakeService) Submit(ctx context.Context, eventID, sessionID string, quantity int) (*service.IntentHandle, error) {
	return m.submitFn(ctx, eventID, sessionID, quantity)
}

// --- Mock QueueService ---

type mockQueueService struct {
	positionFn   func(ctx context.Context, intentID string) (*service.IntentStatusView, error)
	statsFn      func(ctx context.Context, eventID string) (*service.EventQueueStats, error)
	completionFn func(ctx context.Context, intentID string) (*service.CompletionView, error)
	cancelFn     func(ctx context.Context, intentID, sessionID string) error
}

func (m *mockQueueService) Position(ctx context.Context, intentID string) (*service.IntentStatusView, error) {
	return m.positionFn(ctx, intentID)
}
func (m *mockQueueService) Stats(ctx context.Context, eventID string) (*service.EventQueueStats, error) {
	return m.statsFn(ctx, eventID)
}
func (m *mockQueueService) Completion(ctx context.Context, intentID string) (*service.CompletionView, error) {
	return m.completionFn(ctx, intentID)
}
func (m *mockQueueService) Cancel(ctx context.Context, intentID, sessionID string) error {
	return m.cancelFn(ctx, intentID, sessionID)
}

// --- Tests ---

func newContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSubmitIntent_Accepted(t *testing.T) {
	eventID := uuid.NewString()
	intentID := uuid.NewString()
	intake := &mockIntakeService{
		submitFn: func(ctx context.Context, evID, sessionID string, quantity int) (*service.IntentHandle, error) {
			assert.Equal(t, eventID, evID)
			assert.Equal(t, "session-1", sessionID)
			assert.Equal(t, 2, quantity)
			return &service.IntentHandle{
				IntentID:             intentID,
				QueuePosition:        3,
				EstimatedWaitSeconds: 60,
				Status:               models.StatusWaiting,
			}, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodPost, "/api/v1/events/"+eventID+"/purchase-intents", `{"session_id":"session-1","quantity":2}`)
	c.SetParamNames("id")
	c.SetParamValues(eventID)

	h := NewIntentHandler(intake, &mockQueueService{}, nil)
	require.NoError(t, h.SubmitIntent(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp dto.SubmitIntentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, intentID, resp.IntentID)
	assert.Equal(t, int64(3), resp.QueuePosition)
	assert.Equal(t, int64(60), resp.EstimatedWaitSeconds)
	assert.Equal(t, models.StatusWaiting, resp.Status)
}

func TestSubmitIntent_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid", service.ErrInvalidRequest, http.StatusBadRequest},
		{"not found", service.ErrEventNotFound, http.StatusNotFound},
		{"unavailable", service.ErrEventUnavailable, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intake := &mockIntakeService{
				submitFn: func(ctx context.Context, evID, sessionID string, quantity int) (*service.IntentHandle, error) {
					return nil, tc.err
				},
			}

			e := echo.New()
			c, _ := newContext(e, http.MethodPost, "/api/v1/events/x/purchase-intents", `{"session_id":"s","quantity":1}`)
			c.SetParamNames("id")
			c.SetParamValues(uuid.NewString())

			h := NewIntentHandler(intake, &mockQueueService{}, nil)
			err := h.SubmitIntent(c)

			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tc.code, he.Code)
		})
	}
}

func TestGetIntentStatus_Active(t *testing.T) {
	intentID := uuid.NewString()
	queue := &mockQueueService{
		positionFn: func(ctx context.Context, id string) (*service.IntentStatusView, error) {
			return &service.IntentStatusView{
				Intent: &models.PurchaseIntent{
					ID:     intentID,
					Status: models.StatusWaiting,
				},
				Event:                &models.Event{ID: uuid.NewString(), Name: "Riverside Open Air"},
				QueuePosition:        7,
				EstimatedWaitSeconds: 180,
			}, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodGet, "/api/v1/purchase-intents/"+intentID, "")
	c.SetParamNames("id")
	c.SetParamValues(intentID)

	h := NewIntentHandler(&mockIntakeService{}, queue, nil)
	require.NoError(t, h.GetIntentStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.IntentStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusWaiting, resp.Status)
	require.NotNil(t, resp.QueuePosition)
	assert.Equal(t, int64(7), *resp.QueuePosition)
	require.NotNil(t, resp.Event)
	assert.Nil(t, resp.PurchaseResult)
}

func TestGetIntentStatus_Completed(t *testing.T) {
	intentID := uuid.NewString()
	eventID := uuid.NewString()
	queue := &mockQueueService{
		positionFn: func(ctx context.Context, id string) (*service.IntentStatusView, error) {
			return &service.IntentStatusView{
				Intent: &models.PurchaseIntent{
					ID:     intentID,
					Status: models.StatusCompleted,
				},
				Tickets: []models.Ticket{
					{ID: uuid.NewString(), EventID: eventID, PurchaseID: intentID, IssuedAt: time.Now()},
					{ID: uuid.NewString(), EventID: eventID, PurchaseID: intentID, IssuedAt: time.Now()},
				},
			}, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodGet, "/api/v1/purchase-intents/"+intentID, "")
	c.SetParamNames("id")
	c.SetParamValues(intentID)

	h := NewIntentHandler(&mockIntakeService{}, queue, nil)
	require.NoError(t, h.GetIntentStatus(c))

	var resp dto.IntentStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.PurchaseResult)
	assert.True(t, resp.PurchaseResult.Success)
	assert.Equal(t, intentID, resp.PurchaseResult.PurchaseID)
	assert.Equal(t, 2, resp.PurchaseResult.TicketCount)
	assert.Nil(t, resp.QueuePosition)
}

func TestGetCompletion_NotReady(t *testing.T) {
	queue := &mockQueueService{
		completionFn: func(ctx context.Context, id string) (*service.CompletionView, error) {
			return nil, service.ErrNotReady
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodGet, "/api/v1/purchase-intents/x/completion", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	h := NewIntentHandler(&mockIntakeService{}, queue, nil)
	require.NoError(t, h.GetCompletion(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestGetCompletion_Failed(t *testing.T) {
	intentID := uuid.NewString()
	queue := &mockQueueService{
		completionFn: func(ctx context.Context, id string) (*service.CompletionView, error) {
			return &service.CompletionView{
				Intent: &models.PurchaseIntent{
					ID:            intentID,
					Status:        models.StatusFailed,
					FailureReason: "insufficient inventory",
				},
				ProcessingTimeMS: 1200,
			}, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodGet, "/api/v1/purchase-intents/"+intentID+"/completion", "")
	c.SetParamNames("id")
	c.SetParamValues(intentID)

	h := NewIntentHandler(&mockIntakeService{}, queue, nil)
	require.NoError(t, h.GetCompletion(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.CompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "insufficient inventory", resp.Message)
	assert.Equal(t, int64(1200), resp.ProcessingTimeMS)
}

func TestCancelIntent_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", service.ErrIntentNotFound, http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"not cancellable", service.ErrNotCancellable, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			queue := &mockQueueService{
				cancelFn: func(ctx context.Context, intentID, sessionID string) error {
					return tc.err
				},
			}

			e := echo.New()
			c, _ := newContext(e, http.MethodDelete, "/api/v1/purchase-intents/x", `{"session_id":"session-1"}`)
			c.SetParamNames("id")
			c.SetParamValues(uuid.NewString())

			h := NewIntentHandler(&mockIntakeService{}, queue, nil)
			err := h.CancelIntent(c)

			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tc.code, he.Code)
		})
	}
}

func TestCancelIntent_Success(t *testing.T) {
	intentID := uuid.NewString()
	queue := &mockQueueService{
		cancelFn: func(ctx context.Context, id, sessionID string) error {
			assert.Equal(t, intentID, id)
			assert.Equal(t, "session-1", sessionID)
			return nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodDelete, "/api/v1/purchase-intents/"+intentID, `{"session_id":"session-1"}`)
	c.SetParamNames("id")
	c.SetParamValues(intentID)

	h := NewIntentHandler(&mockIntakeService{}, queue, nil)
	require.NoError(t, h.CancelIntent(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.CancelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestCancelIntent_MissingSession(t *testing.T) {
	e := echo.New()
	c, _ := newContext(e, http.MethodDelete, "/api/v1/purchase-intents/x", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	h := NewIntentHandler(&mockIntakeService{}, &mockQueueService{}, nil)
	err := h.CancelIntent(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestGetProcessorHealth(t *testing.T) {
	proc := processor.New(processor.DefaultConfig(), nil, nil, nil)

	e := echo.New()
	c, rec := newContext(e, http.MethodGet, "/api/v1/queue/health", "")

	h := NewIntentHandler(&mockIntakeService{}, &mockQueueService{}, proc)
	require.NoError(t, h.GetProcessorHealth(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp processor.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.IsRunning)
	assert.Zero(t, resp.TotalProcessed)
}

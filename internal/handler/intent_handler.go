package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tylerhoskins/ticketing-platform/internal/dto"
	"github.com/tylerhoskins/ticketing-platform/internal/processor"
	"github.com/tylerhoskins/ticketing-platform/internal/service"
)

type IntentHandler struct {
	intake service.IntakeService
	queue  service.QueueService
	proc   *processor.Processor
}

func NewIntentHandler(intake service.IntakeService, queue service.QueueService, proc *processor.Processor) *IntentHandler {
	return &IntentHandler{intake: intake, queue: queue, proc: proc}
}

func (h *IntentHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/events/:id/purchase-intents", h.SubmitIntent)
	e.GET("/api/v1/purchase-intents/:id", h.GetIntentStatus)
	e.GET("/api/v1/purchase-intents/:id/completion", h.GetCompletion)
	e.DELETE("/api/v1/purchase-intents/:id", h.CancelIntent)
	e.GET("/api/v1/queue/health", h.GetProcessorHealth)
}

func (h *IntentHandler) SubmitIntent(c echo.Context) error {
	var req dto.SubmitIntentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	handle, err := h.intake.Submit(c.Request().Context(), c.Param("id"), req.SessionID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEventNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrEventUnavailable):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusAccepted, dto.ToSubmitIntentResponse(handle))
}

func (h *IntentHandler) GetIntentStatus(c echo.Context) error {
	view, err := h.queue.Position(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrIntentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToIntentStatusResponse(view))
}

func (h *IntentHandler) GetCompletion(c echo.Context) error {
	view, err := h.queue.Completion(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIntentNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotReady):
			return c.JSON(http.StatusAccepted, dto.ErrorResponse{Message: "purchase is still in the queue"})
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.ToCompletionResponse(view))
}

func (h *IntentHandler) CancelIntent(c echo.Context) error {
	var req dto.CancelIntentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.QueryParam("session_id")
	}
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}

	err := h.queue.Cancel(c.Request().Context(), c.Param("id"), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIntentNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrNotCancellable):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.CancelResponse{Success: true, Message: "intent cancelled"})
}

func (h *IntentHandler) GetProcessorHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, h.proc.Health())
}

package handlers

import (
	"net/http"
	"time"

	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CalendarHandler serves calendar event endpoints.
type CalendarHandler struct {
	calendarService *services.CalendarService
	logger          *logrus.Logger
}

func NewCalendarHandler(calendarService *services.CalendarService, logger *logrus.Logger) *CalendarHandler {
	return &CalendarHandler{
		calendarService: calendarService,
		logger:          logger,
	}
}

// CreateEvent creates a calendar event for the caller.
// @Router /api/calendar/events [post]
func (h *CalendarHandler) CreateEvent(c *gin.Context) {
	var req services.CalendarEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	event, err := h.calendarService.CreateEvent(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		h.logger.Errorf("Failed to create calendar event: %v", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to create calendar event",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, event)
}

// ListEvents lists the caller's events overlapping [from, to].
// Defaults to the coming 30 days.
// @Router /api/calendar/events [get]
func (h *CalendarHandler) ListEvents(c *gin.Context) {
	now := time.Now()
	from := now
	to := now.AddDate(0, 0, 30)

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid from parameter",
				Message: "expected RFC3339 timestamp",
			})
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid to parameter",
				Message: "expected RFC3339 timestamp",
			})
			return
		}
		to = t
	}

	events, err := h.calendarService.ListEvents(c.Request.Context(), currentUserID(c), from, to)
	if err != nil {
		h.logger.Errorf("Failed to list calendar events: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list calendar events",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, events)
}

// DeleteEvent removes one of the caller's events.
// @Router /api/calendar/events/{id} [delete]
func (h *CalendarHandler) DeleteEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.calendarService.DeleteEvent(c.Request.Context(), currentUserID(c), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to delete calendar event",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Event deleted"})
}

// RegisterCalendarRoutes wires the calendar endpoints.
func RegisterCalendarRoutes(r *gin.RouterGroup, handler *CalendarHandler) {
	events := r.Group("/calendar/events")
	{
		events.POST("", handler.CreateEvent)
		events.GET("", handler.ListEvents)
		events.DELETE("/:id", handler.DeleteEvent)
	}
}

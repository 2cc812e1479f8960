package handlers

import (
	"net/http"
	"strconv"

	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NotificationHandler serves in-app notification and audit log endpoints.
type NotificationHandler struct {
	notificationService *services.NotificationService
	auditService        *services.AuditService
	logger              *logrus.Logger
}

func NewNotificationHandler(notificationService *services.NotificationService, auditService *services.AuditService, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		auditService:        auditService,
		logger:              logger,
	}
}

// ListNotifications lists the caller's notifications newest first.
// @Router /api/notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	notifications, err := h.notificationService.ListNotifications(c.Request.Context(), currentUserID(c), unreadOnly, limit)
	if err != nil {
		h.logger.Errorf("Failed to list notifications: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list notifications",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkRead marks one of the caller's notifications as read.
// @Router /api/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), currentUserID(c), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to mark notification read",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Notification marked read"})
}

// MarkAllRead marks all of the caller's notifications as read.
// @Router /api/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notificationService.MarkAllRead(c.Request.Context(), currentUserID(c)); err != nil {
		h.logger.Errorf("Failed to mark notifications read: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to mark notifications read",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "All notifications marked read"})
}

// ListAuditLog lists a board's audit entries newest first.
// @Router /api/boards/{id}/audit [get]
func (h *NotificationHandler) ListAuditLog(c *gin.Context) {
	boardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	entries, err := h.auditService.ListEntries(c.Request.Context(), boardID, limit)
	if err != nil {
		h.logger.Errorf("Failed to list audit log for board %d: %v", boardID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list audit log",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// RegisterNotificationRoutes wires notification and audit endpoints.
func RegisterNotificationRoutes(r *gin.RouterGroup, handler *NotificationHandler) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", handler.ListNotifications)
		notifications.POST("/:id/read", handler.MarkRead)
		notifications.POST("/read-all", handler.MarkAllRead)
	}
	r.GET("/boards/:id/audit", handler.ListAuditLog)
}

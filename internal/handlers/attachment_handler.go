package handlers

import (
	"net/http"

	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AttachmentHandler serves card attachment endpoints.
type AttachmentHandler struct {
	attachmentService *services.AttachmentService
	logger            *logrus.Logger
}

func NewAttachmentHandler(attachmentService *services.AttachmentService, logger *logrus.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
		logger:            logger,
	}
}

// UploadAttachment stores a multipart file upload against a card.
// @Router /api/cards/{id}/attachments [post]
func (h *AttachmentHandler) UploadAttachment(c *gin.Context) {
	cardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Missing file",
			Message: "multipart form field 'file' is required",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to read file",
			Message: err.Error(),
		})
		return
	}
	defer file.Close()

	attachment, err := h.attachmentService.SaveAttachment(
		c.Request.Context(),
		cardID,
		currentUserID(c),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		h.logger.Errorf("Failed to save attachment on card %d: %v", cardID, err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to save attachment",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, attachment)
}

// ListAttachments lists a card's attachments.
// @Router /api/cards/{id}/attachments [get]
func (h *AttachmentHandler) ListAttachments(c *gin.Context) {
	cardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	attachments, err := h.attachmentService.ListAttachments(c.Request.Context(), cardID)
	if err != nil {
		h.logger.Errorf("Failed to list attachments for card %d: %v", cardID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list attachments",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, attachments)
}

// DeleteAttachment removes an attachment record and its stored file.
// @Router /api/attachments/{id} [delete]
func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.attachmentService.DeleteAttachment(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to delete attachment",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Attachment deleted"})
}

// RegisterAttachmentRoutes wires the attachment endpoints.
func RegisterAttachmentRoutes(r *gin.RouterGroup, handler *AttachmentHandler) {
	r.POST("/cards/:id/attachments", handler.UploadAttachment)
	r.GET("/cards/:id/attachments", handler.ListAttachments)
	r.DELETE("/attachments/:id", handler.DeleteAttachment)
}

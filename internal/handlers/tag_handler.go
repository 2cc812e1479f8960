package handlers

import (
	"net/http"

	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TagHandler serves board tag endpoints.
type TagHandler struct {
	tagService *services.TagService
	logger     *logrus.Logger
}

func NewTagHandler(tagService *services.TagService, logger *logrus.Logger) *TagHandler {
	return &TagHandler{
		tagService: tagService,
		logger:     logger,
	}
}

// CreateTag creates a tag on a board.
// @Router /api/boards/{id}/tags [post]
func (h *TagHandler) CreateTag(c *gin.Context) {
	boardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	tag, err := h.tagService.CreateTag(c.Request.Context(), boardID, &req)
	if err != nil {
		h.logger.Errorf("Failed to create tag on board %d: %v", boardID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to create tag",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// ListTags lists a board's tags.
// @Router /api/boards/{id}/tags [get]
func (h *TagHandler) ListTags(c *gin.Context) {
	boardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tags, err := h.tagService.ListTags(c.Request.Context(), boardID)
	if err != nil {
		h.logger.Errorf("Failed to list tags for board %d: %v", boardID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list tags",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, tags)
}

// DeleteTag removes a tag and its card associations.
// @Router /api/tags/{id} [delete]
func (h *TagHandler) DeleteTag(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.tagService.DeleteTag(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to delete tag",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Tag deleted"})
}

// RegisterTagRoutes wires the tag endpoints.
func RegisterTagRoutes(r *gin.RouterGroup, handler *TagHandler) {
	r.POST("/boards/:id/tags", handler.CreateTag)
	r.GET("/boards/:id/tags", handler.ListTags)
	r.DELETE("/tags/:id", handler.DeleteTag)
}

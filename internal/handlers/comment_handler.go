package handlers

import (
	"net/http"

	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CommentHandler serves card comment endpoints.
type CommentHandler struct {
	commentService *services.CommentService
	logger         *logrus.Logger
}

func NewCommentHandler(commentService *services.CommentService, logger *logrus.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

// CreateComment adds a comment to a card. @username mentions in the body
// are resolved against registered users.
// @Router /api/cards/{id}/comments [post]
func (h *CommentHandler) CreateComment(c *gin.Context) {
	cardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), cardID, currentUserID(c), &req)
	if err != nil {
		h.logger.Errorf("Failed to create comment on card %d: %v", cardID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to create comment",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListComments lists a card's comments oldest first.
// @Router /api/cards/{id}/comments [get]
func (h *CommentHandler) ListComments(c *gin.Context) {
	cardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(c.Request.Context(), cardID)
	if err != nil {
		h.logger.Errorf("Failed to list comments for card %d: %v", cardID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list comments",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, comments)
}

// DeleteComment removes a comment.
// @Router /api/comments/{id} [delete]
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to delete comment",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Comment deleted"})
}

// RegisterCommentRoutes wires the comment endpoints.
func RegisterCommentRoutes(r *gin.RouterGroup, handler *CommentHandler) {
	r.POST("/cards/:id/comments", handler.CreateComment)
	r.GET("/cards/:id/comments", handler.ListComments)
	r.DELETE("/comments/:id", handler.DeleteComment)
}

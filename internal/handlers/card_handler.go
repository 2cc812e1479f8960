package handlers

import (
	"net/http"
	"strconv"

	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CardHandler serves card endpoints.
type CardHandler struct {
	cardService *services.CardService
	logger      *logrus.Logger
}

func NewCardHandler(cardService *services.CardService, logger *logrus.Logger) *CardHandler {
	return &CardHandler{
		cardService: cardService,
		logger:      logger,
	}
}

// CreateCard creates a card in a list.
// @Router /api/cards [post]
func (h *CardHandler) CreateCard(c *gin.Context) {
	var req services.CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	card, err := h.cardService.CreateCard(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		h.logger.Errorf("Failed to create card: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to create card",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, card)
}

// ListCards lists cards filtered by board_id or list_id.
// @Router /api/cards [get]
func (h *CardHandler) ListCards(c *gin.Context) {
	boardID, _ := strconv.ParseUint(c.Query("board_id"), 10, 32)
	listID, _ := strconv.ParseUint(c.Query("list_id"), 10, 32)

	cards, err := h.cardService.ListCards(c.Request.Context(), uint(boardID), uint(listID))
	if err != nil {
		h.logger.Errorf("Failed to list cards: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list cards",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, cards)
}

// GetCard returns one card with its tags and tasks.
// @Router /api/cards/{id} [get]
func (h *CardHandler) GetCard(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	card, err := h.cardService.GetCard(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Card not found",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, card)
}

// UpdateCard applies a partial card update.
// @Router /api/cards/{id} [put]
func (h *CardHandler) UpdateCard(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CardUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	card, err := h.cardService.UpdateCard(c.Request.Context(), id, currentUserID(c), &req)
	if err != nil {
		h.logger.Errorf("Failed to update card %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to update card",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, card)
}

// MoveCard moves a card to another list on the same board.
// @Router /api/cards/{id}/move [post]
func (h *CardHandler) MoveCard(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CardMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	card, err := h.cardService.MoveCard(c.Request.Context(), id, currentUserID(c), &req)
	if err != nil {
		h.logger.Errorf("Failed to move card %d: %v", id, err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to move card",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, card)
}

// AssignCard assigns a card to a user.
// @Router /api/cards/{id}/assign [post]
func (h *CardHandler) AssignCard(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		AssigneeID uint `json:"assignee_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	card, err := h.cardService.AssignCardTo(c.Request.Context(), id, currentUserID(c), req.AssigneeID)
	if err != nil {
		h.logger.Errorf("Failed to assign card %d: %v", id, err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to assign card",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, card)
}

// AttachTag adds a board tag to a card.
// @Router /api/cards/{id}/tags [post]
func (h *CardHandler) AttachTag(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		TagID uint `json:"tag_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.cardService.AddCardTag(c.Request.Context(), id, req.TagID); err != nil {
		h.logger.Errorf("Failed to tag card %d: %v", id, err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to tag card",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Tag attached"})
}

// DetachTag removes a tag from a card.
// @Router /api/cards/{id}/tags/{tagId} [delete]
func (h *CardHandler) DetachTag(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	tagID, ok := parseIDParam(c, "tagId")
	if !ok {
		return
	}

	if err := h.cardService.RemoveCardTag(c.Request.Context(), id, tagID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to untag card",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Tag detached"})
}

// DeleteCard removes a card.
// @Router /api/cards/{id} [delete]
func (h *CardHandler) DeleteCard(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.cardService.DeleteCard(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to delete card",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Card deleted"})
}

// RegisterCardRoutes wires the card endpoints.
func RegisterCardRoutes(r *gin.RouterGroup, handler *CardHandler) {
	cards := r.Group("/cards")
	{
		cards.POST("", handler.CreateCard)
		cards.GET("", handler.ListCards)
		cards.GET("/:id", handler.GetCard)
		cards.PUT("/:id", handler.UpdateCard)
		cards.DELETE("/:id", handler.DeleteCard)
		cards.POST("/:id/move", handler.MoveCard)
		cards.POST("/:id/assign", handler.AssignCard)
		cards.POST("/:id/tags", handler.AttachTag)
		cards.DELETE("/:id/tags/:tagId", handler.DetachTag)
	}
}

package handlers

import (
	"net/http"
	"strconv"

	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BoardHandler serves board and list endpoints.
type BoardHandler struct {
	boardService *services.BoardService
	logger       *logrus.Logger
}

func NewBoardHandler(boardService *services.BoardService, logger *logrus.Logger) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
		logger:       logger,
	}
}

// CreateBoard creates a board in a workspace.
// @Router /api/boards [post]
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	var req services.BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	board, err := h.boardService.CreateBoard(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		h.logger.Errorf("Failed to create board: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to create board",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, board)
}

// ListBoards lists boards, filtered by workspace_id when given.
// @Router /api/boards [get]
func (h *BoardHandler) ListBoards(c *gin.Context) {
	workspaceID, _ := strconv.ParseUint(c.Query("workspace_id"), 10, 32)

	boards, err := h.boardService.ListBoards(c.Request.Context(), uint(workspaceID))
	if err != nil {
		h.logger.Errorf("Failed to list boards: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list boards",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, boards)
}

// GetBoard returns a board with its lists, tags, and members.
// @Router /api/boards/{id} [get]
func (h *BoardHandler) GetBoard(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	board, err := h.boardService.GetBoard(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Board not found",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, board)
}

// UpdateBoard updates board metadata.
// @Router /api/boards/{id} [put]
func (h *BoardHandler) UpdateBoard(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	board, err := h.boardService.UpdateBoard(c.Request.Context(), id, &req)
	if err != nil {
		h.logger.Errorf("Failed to update board %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to update board",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, board)
}

// DeleteBoard removes a board.
// @Router /api/boards/{id} [delete]
func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.boardService.DeleteBoard(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to delete board",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Board deleted"})
}

// CreateList appends a list to a board.
// @Router /api/boards/{id}/lists [post]
func (h *BoardHandler) CreateList(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	list, err := h.boardService.CreateList(c.Request.Context(), id, &req)
	if err != nil {
		h.logger.Errorf("Failed to create list on board %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to create list",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, list)
}

// UpdateList renames or repositions a list.
// @Router /api/lists/{id} [put]
func (h *BoardHandler) UpdateList(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	list, err := h.boardService.UpdateList(c.Request.Context(), id, &req)
	if err != nil {
		h.logger.Errorf("Failed to update list %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to update list",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteList removes an empty list. Lists holding cards are refused.
// @Router /api/lists/{id} [delete]
func (h *BoardHandler) DeleteList(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.boardService.DeleteList(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "Failed to delete list",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "List deleted"})
}

// RegisterBoardRoutes wires board and list endpoints.
func RegisterBoardRoutes(r *gin.RouterGroup, handler *BoardHandler) {
	boards := r.Group("/boards")
	{
		boards.POST("", handler.CreateBoard)
		boards.GET("", handler.ListBoards)
		boards.GET("/:id", handler.GetBoard)
		boards.PUT("/:id", handler.UpdateBoard)
		boards.DELETE("/:id", handler.DeleteBoard)
		boards.POST("/:id/lists", handler.CreateList)
	}
	lists := r.Group("/lists")
	{
		lists.PUT("/:id", handler.UpdateList)
		lists.DELETE("/:id", handler.DeleteList)
	}
}

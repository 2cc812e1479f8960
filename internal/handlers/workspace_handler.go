package handlers

import (
	"net/http"

	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// WorkspaceHandler serves workspace and membership endpoints.
type WorkspaceHandler struct {
	workspaceService *services.WorkspaceService
	logger           *logrus.Logger
}

func NewWorkspaceHandler(workspaceService *services.WorkspaceService, logger *logrus.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: workspaceService,
		logger:           logger,
	}
}

// CreateWorkspace creates a workspace owned by the caller.
// @Router /api/workspaces [post]
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	var req services.WorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	workspace, err := h.workspaceService.CreateWorkspace(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		h.logger.Errorf("Failed to create workspace: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to create workspace",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, workspace)
}

// ListWorkspaces lists workspaces the caller belongs to.
// @Router /api/workspaces [get]
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	workspaces, err := h.workspaceService.ListWorkspaces(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logger.Errorf("Failed to list workspaces: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list workspaces",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, workspaces)
}

// GetWorkspace returns one workspace with its members.
// @Router /api/workspaces/{id} [get]
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	workspace, err := h.workspaceService.GetWorkspace(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Workspace not found",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, workspace)
}

// UpdateWorkspace updates name and description.
// @Router /api/workspaces/{id} [put]
func (h *WorkspaceHandler) UpdateWorkspace(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.WorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	workspace, err := h.workspaceService.UpdateWorkspace(c.Request.Context(), id, &req)
	if err != nil {
		h.logger.Errorf("Failed to update workspace %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to update workspace",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, workspace)
}

// DeleteWorkspace removes a workspace.
// @Router /api/workspaces/{id} [delete]
func (h *WorkspaceHandler) DeleteWorkspace(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.workspaceService.DeleteWorkspace(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to delete workspace",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Workspace deleted"})
}

// AddMember adds a user to the workspace or updates their role.
// @Router /api/workspaces/{id}/members [post]
func (h *WorkspaceHandler) AddMember(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Role   string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	member, err := h.workspaceService.AddMember(c.Request.Context(), id, req.UserID, req.Role)
	if err != nil {
		h.logger.Errorf("Failed to add member to workspace %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to add member",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, member)
}

// RemoveMember removes a user from the workspace.
// @Router /api/workspaces/{id}/members/{userId} [delete]
func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.workspaceService.RemoveMember(c.Request.Context(), id, userID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to remove member",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Member removed"})
}

// RegisterWorkspaceRoutes wires the workspace endpoints.
func RegisterWorkspaceRoutes(r *gin.RouterGroup, handler *WorkspaceHandler) {
	workspaces := r.Group("/workspaces")
	{
		workspaces.POST("", handler.CreateWorkspace)
		workspaces.GET("", handler.ListWorkspaces)
		workspaces.GET("/:id", handler.GetWorkspace)
		workspaces.PUT("/:id", handler.UpdateWorkspace)
		workspaces.DELETE("/:id", handler.DeleteWorkspace)
		workspaces.POST("/:id/members", handler.AddMember)
		workspaces.DELETE("/:id/members/:userId", handler.RemoveMember)
	}
}

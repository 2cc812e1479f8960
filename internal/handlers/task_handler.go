package handlers

import (
	"net/http"

	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TaskHandler serves checklist task endpoints.
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logrus.Logger
}

func NewTaskHandler(taskService *services.TaskService, logger *logrus.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// CreateTask adds a task to a card's checklist.
// @Router /api/cards/{id}/tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	cardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), cardID, &req)
	if err != nil {
		h.logger.Errorf("Failed to create task on card %d: %v", cardID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to create task",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, task)
}

// ListTasks lists a card's checklist in position order.
// @Router /api/cards/{id}/tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	cardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), cardID)
	if err != nil {
		h.logger.Errorf("Failed to list tasks for card %d: %v", cardID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list tasks",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// CompleteTask marks a task done. Completing an already-done task is a no-op.
// @Router /api/tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.CompleteTask(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to complete task",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, task)
}

// ReopenTask marks a completed task as open again.
// @Router /api/tasks/{id}/reopen [post]
func (h *TaskHandler) ReopenTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.ReopenTask(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to reopen task",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task from a checklist.
// @Router /api/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to delete task",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Task deleted"})
}

// RegisterTaskRoutes wires the checklist endpoints.
func RegisterTaskRoutes(r *gin.RouterGroup, handler *TaskHandler) {
	r.POST("/cards/:id/tasks", handler.CreateTask)
	r.GET("/cards/:id/tasks", handler.ListTasks)
	tasks := r.Group("/tasks")
	{
		tasks.POST("/:id/complete", handler.CompleteTask)
		tasks.POST("/:id/reopen", handler.ReopenTask)
		tasks.DELETE("/:id", handler.DeleteTask)
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AutomationHandler serves automation rule authoring and execution log endpoints.
type AutomationHandler struct {
	automationService *services.AutomationService
	logger            *logrus.Logger
}

func NewAutomationHandler(automationService *services.AutomationService, logger *logrus.Logger) *AutomationHandler {
	return &AutomationHandler{
		automationService: automationService,
		logger:            logger,
	}
}

// writeRuleError maps rule validation failures to 400 with a stable error
// code; anything else is a 500.
func (h *AutomationHandler) writeRuleError(c *gin.Context, err error) {
	var cfgErr *services.InvalidActionConfigError
	switch {
	case errors.Is(err, services.ErrEmptyName):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "EMPTY_NAME",
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrUnknownTrigger):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "UNKNOWN_TRIGGER",
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrNoActions):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "NO_ACTIONS",
			Message: err.Error(),
		})
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "INVALID_ACTION_CONFIG",
			Message: err.Error(),
			Code:    cfgErr.Index,
		})
	default:
		h.logger.Errorf("Automation request failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to save automation",
			Message: err.Error(),
		})
	}
}

// CreateAutomation validates and stores a rule. Invalid rules are rejected
// without persisting anything.
// @Router /api/automations [post]
func (h *AutomationHandler) CreateAutomation(c *gin.Context) {
	var req services.AutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	automation, err := h.automationService.CreateAutomation(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		h.writeRuleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, automation)
}

// UpdateAutomation replaces a rule's definition after re-validation.
// @Router /api/automations/{id} [put]
func (h *AutomationHandler) UpdateAutomation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.AutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	automation, err := h.automationService.UpdateAutomation(c.Request.Context(), id, &req)
	if err != nil {
		h.writeRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, automation)
}

// ListAutomations lists a board's rules.
// @Router /api/automations [get]
func (h *AutomationHandler) ListAutomations(c *gin.Context) {
	boardID, err := strconv.ParseUint(c.Query("board_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid board_id",
			Message: "board_id query parameter is required",
		})
		return
	}

	automations, err := h.automationService.ListAutomations(c.Request.Context(), uint(boardID))
	if err != nil {
		h.logger.Errorf("Failed to list automations: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list automations",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, automations)
}

// GetAutomation returns one rule.
// @Router /api/automations/{id} [get]
func (h *AutomationHandler) GetAutomation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	automation, err := h.automationService.GetAutomation(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Automation not found",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, automation)
}

// ToggleAutomation enables or disables a rule without editing it.
// @Router /api/automations/{id}/toggle [post]
func (h *AutomationHandler) ToggleAutomation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.automationService.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to toggle automation",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Automation updated"})
}

// DeleteAutomation removes a rule. Its execution history is retained.
// @Router /api/automations/{id} [delete]
func (h *AutomationHandler) DeleteAutomation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.automationService.DeleteAutomation(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to delete automation",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Automation deleted"})
}

// ListExecutions lists execution records newest first, filtered by board
// or by a single rule.
// @Router /api/automations/executions [get]
func (h *AutomationHandler) ListExecutions(c *gin.Context) {
	boardID, _ := strconv.ParseUint(c.Query("board_id"), 10, 32)
	automationID, _ := strconv.ParseUint(c.Query("automation_id"), 10, 32)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	if boardID == 0 && automationID == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Missing filter",
			Message: "board_id or automation_id query parameter is required",
		})
		return
	}

	executions, err := h.automationService.ListExecutions(c.Request.Context(), uint(boardID), uint(automationID), limit)
	if err != nil {
		h.logger.Errorf("Failed to list executions: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list executions",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, executions)
}

// GetCatalog exposes the closed trigger and action enumerations with their
// config schemas, for the rule authoring UI.
// @Router /api/automations/catalog [get]
func (h *AutomationHandler) GetCatalog(c *gin.Context) {
	triggers := make([]gin.H, 0, len(services.TriggerTypes()))
	for _, t := range services.TriggerTypes() {
		schema, _ := services.ConditionSchemaFor(t)
		triggers = append(triggers, gin.H{
			"type":       t,
			"conditions": schema,
		})
	}

	actions := make([]gin.H, 0, len(services.ActionTypes()))
	for _, a := range services.ActionTypes() {
		schema, _ := services.ConfigSchemaFor(a)
		actions = append(actions, gin.H{
			"type":     a,
			"config":   schema,
			"disabled": services.IsDisabledAction(a),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"triggers": triggers,
		"actions":  actions,
	})
}

// RegisterAutomationRoutes wires the automation endpoints.
func RegisterAutomationRoutes(r *gin.RouterGroup, handler *AutomationHandler) {
	automations := r.Group("/automations")
	{
		automations.POST("", handler.CreateAutomation)
		automations.GET("", handler.ListAutomations)
		automations.GET("/catalog", handler.GetCatalog)
		automations.GET("/executions", handler.ListExecutions)
		automations.GET("/:id", handler.GetAutomation)
		automations.PUT("/:id", handler.UpdateAutomation)
		automations.POST("/:id/toggle", handler.ToggleAutomation)
		automations.DELETE("/:id", handler.DeleteAutomation)
	}
}

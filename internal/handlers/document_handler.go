package handlers

import (
	"net/http"

	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DocumentHandler serves board document endpoints.
type DocumentHandler struct {
	documentService *services.DocumentService
	logger          *logrus.Logger
}

func NewDocumentHandler(documentService *services.DocumentService, logger *logrus.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// CreateDocument creates a document on a board.
// @Router /api/boards/{id}/documents [post]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	boardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	doc, err := h.documentService.CreateDocument(c.Request.Context(), boardID, currentUserID(c), &req)
	if err != nil {
		h.logger.Errorf("Failed to create document on board %d: %v", boardID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to create document",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// ListDocuments lists a board's documents.
// @Router /api/boards/{id}/documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	boardID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	docs, err := h.documentService.ListDocuments(c.Request.Context(), boardID)
	if err != nil {
		h.logger.Errorf("Failed to list documents for board %d: %v", boardID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list documents",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, docs)
}

// GetDocument returns one document.
// @Router /api/documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.GetDocument(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Document not found",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// UpdateDocument updates a document's title and content.
// @Router /api/documents/{id} [put]
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	doc, err := h.documentService.UpdateDocument(c.Request.Context(), id, &req)
	if err != nil {
		h.logger.Errorf("Failed to update document %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to update document",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument removes a document.
// @Router /api/documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.documentService.DeleteDocument(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to delete document",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Document deleted"})
}

// RegisterDocumentRoutes wires the document endpoints.
func RegisterDocumentRoutes(r *gin.RouterGroup, handler *DocumentHandler) {
	r.POST("/boards/:id/documents", handler.CreateDocument)
	r.GET("/boards/:id/documents", handler.ListDocuments)
	documents := r.Group("/documents")
	{
		documents.GET("/:id", handler.GetDocument)
		documents.PUT("/:id", handler.UpdateDocument)
		documents.DELETE("/:id", handler.DeleteDocument)
	}
}

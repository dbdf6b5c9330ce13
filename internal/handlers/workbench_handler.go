package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/query"
	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/store"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

// WorkbenchHandler exposes the stateful workbench session backed by the
// store. Unlike the stateless /questions endpoints, the workbench keeps the
// collection snapshot and the active query server-side and re-derives the
// visible page on every change.
type WorkbenchHandler struct {
	BaseHandler
	store *store.Store
}

func NewWorkbenchHandler(st *store.Store, logger utils.Logger) *WorkbenchHandler {
	return &WorkbenchHandler{
		BaseHandler: NewBaseHandler(logger),
		store:       st,
	}
}

// WorkbenchStateResponse reports the session state alongside the derived page.
type WorkbenchStateResponse struct {
	State  store.State              `json:"state"`
	Error  string                   `json:"error,omitempty"`
	Query  query.SearchQuery        `json:"query"`
	Result query.Result             `json:"result"`
	Stats  *services.DashboardStats `json:"stats,omitempty"`
}

func (h *WorkbenchHandler) stateResponse() WorkbenchStateResponse {
	resp := WorkbenchStateResponse{
		State:  h.store.State(),
		Query:  h.store.Query(),
		Result: h.store.Result(),
		Stats:  h.store.Stats(),
	}
	if err := h.store.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// GetState returns the current workbench state and derived page
// @Summary Get the workbench state
// @Tags workbench
// @Produce json
// @Success 200 {object} WorkbenchStateResponse
// @Router /workbench [get]
func (h *WorkbenchHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.stateResponse())
}

// Load fetches the collection into the workbench snapshot
// @Summary Load the workbench snapshot
// @Tags workbench
// @Produce json
// @Success 200 {object} WorkbenchStateResponse
// @Failure 502 {object} ErrorResponse "Load failed"
// @Router /workbench/load [post]
func (h *WorkbenchHandler) Load(c *gin.Context) {
	if err := h.store.Load(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{Message: "Failed to load questions", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.stateResponse())
}

// Refresh reloads the snapshot and statistics together
// @Summary Refresh the workbench snapshot and statistics
// @Tags workbench
// @Produce json
// @Success 200 {object} WorkbenchStateResponse
// @Failure 502 {object} ErrorResponse "Refresh failed"
// @Router /workbench/refresh [post]
func (h *WorkbenchHandler) Refresh(c *gin.Context) {
	if err := h.store.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{Message: "Failed to refresh workbench", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.stateResponse())
}

type workbenchQueryRequest struct {
	Query string `json:"query"`
}

// SetQuery replaces the free-text query
// @Summary Set the workbench search text
// @Tags workbench
// @Accept json
// @Produce json
// @Param request body workbenchQueryRequest true "Search text"
// @Success 200 {object} WorkbenchStateResponse
// @Router /workbench/query [put]
func (h *WorkbenchHandler) SetQuery(c *gin.Context) {
	var req workbenchQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	h.store.SetQuery(req.Query)
	c.JSON(http.StatusOK, h.stateResponse())
}

// SetFilters replaces the filter set
// @Summary Set the workbench filters
// @Tags workbench
// @Accept json
// @Produce json
// @Param request body query.QuestionFilters true "Filter set"
// @Success 200 {object} WorkbenchStateResponse
// @Router /workbench/filters [put]
func (h *WorkbenchHandler) SetFilters(c *gin.Context) {
	var filters query.QuestionFilters
	if err := c.ShouldBindJSON(&filters); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	h.store.SetFilters(filters)
	c.JSON(http.StatusOK, h.stateResponse())
}

type workbenchSortRequest struct {
	SortBy    query.SortKey       `json:"sort_by"`
	SortOrder query.SortDirection `json:"sort_order"`
}

// SetSort replaces the sort key and direction
// @Summary Set the workbench sort
// @Tags workbench
// @Accept json
// @Produce json
// @Param request body workbenchSortRequest true "Sort key and direction"
// @Success 200 {object} WorkbenchStateResponse
// @Failure 400 {object} ErrorResponse "Unknown sort key"
// @Router /workbench/sort [put]
func (h *WorkbenchHandler) SetSort(c *gin.Context) {
	var req workbenchSortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	if err := h.store.SetSort(req.SortBy, req.SortOrder); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.stateResponse())
}

// SetPage moves the page window
// @Summary Set the workbench page
// @Tags workbench
// @Produce json
// @Param page query int true "Page number (1-indexed)"
// @Param limit query int false "Page size"
// @Success 200 {object} WorkbenchStateResponse
// @Router /workbench/page [put]
func (h *WorkbenchHandler) SetPage(c *gin.Context) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid page number"})
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid page size"})
			return
		}
	}

	h.store.SetPage(page, limit)
	c.JSON(http.StatusOK, h.stateResponse())
}

// CreateQuestion creates a question and reloads the snapshot
// @Summary Create a question through the workbench
// @Tags workbench
// @Accept json
// @Produce json
// @Param request body services.CreateQuestionRequest true "Question creation request"
// @Success 201 {object} services.QuestionResponse
// @Router /workbench/questions [post]
func (h *WorkbenchHandler) CreateQuestion(c *gin.Context) {
	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	response, err := h.store.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// UpdateQuestion updates a question and reloads the snapshot
// @Summary Update a question through the workbench
// @Tags workbench
// @Accept json
// @Produce json
// @Param id path int true "Question ID"
// @Param request body services.UpdateQuestionRequest true "Question update request"
// @Success 200 {object} services.QuestionResponse
// @Router /workbench/questions/{id} [put]
func (h *WorkbenchHandler) UpdateQuestion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid question ID"})
		return
	}

	var req services.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	response, err := h.store.Update(c.Request.Context(), uint(id), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// DeleteQuestion deletes a question and reloads the snapshot
// @Summary Delete a question through the workbench
// @Tags workbench
// @Param id path int true "Question ID"
// @Success 204 "No content"
// @Router /workbench/questions/{id} [delete]
func (h *WorkbenchHandler) DeleteQuestion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid question ID"})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), uint(id), userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// BulkDelete deletes a batch and reloads the snapshot
// @Summary Bulk delete questions through the workbench
// @Tags workbench
// @Accept json
// @Produce json
// @Param request body services.BulkDeleteRequest true "Bulk delete request"
// @Success 200 {object} services.BulkResult
// @Router /workbench/questions/bulk/delete [post]
func (h *WorkbenchHandler) BulkDelete(c *gin.Context) {
	var req services.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.store.BulkDelete(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BulkSetActive flips active flags on a batch and reloads the snapshot
// @Summary Bulk activate or deactivate questions through the workbench
// @Tags workbench
// @Accept json
// @Produce json
// @Param request body services.BulkSetActiveRequest true "Bulk activity request"
// @Success 200 {object} services.BulkResult
// @Router /workbench/questions/bulk/activity [post]
func (h *WorkbenchHandler) BulkSetActive(c *gin.Context) {
	var req services.BulkSetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.store.BulkSetActive(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BulkTag merges tags into a batch and reloads the snapshot
// @Summary Bulk tag questions through the workbench
// @Tags workbench
// @Accept json
// @Produce json
// @Param request body services.BulkTagRequest true "Bulk tag request"
// @Success 200 {object} services.BulkResult
// @Router /workbench/questions/bulk/tags [post]
func (h *WorkbenchHandler) BulkTag(c *gin.Context) {
	var req services.BulkTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.store.BulkTag(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

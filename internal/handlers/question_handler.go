package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/query"
	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

type QuestionHandler struct {
	BaseHandler
	service services.QuestionService
}

func NewQuestionHandler(service services.QuestionService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== CORE CRUD ENDPOINTS =====

// CreateQuestion creates a new question
// @Summary Create a new question
// @Tags questions
// @Accept json
// @Produce json
// @Param request body services.CreateQuestionRequest true "Question creation request"
// @Success 201 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	response, err := h.service.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetQuestion retrieves a question by ID
// @Summary Get a question by ID
// @Tags questions
// @Produce json
// @Param id path int true "Question ID"
// @Success 200 {object} services.QuestionResponse
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid question ID"})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	response, err := h.service.GetByID(c.Request.Context(), uint(id), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetQuestionByHumanID retrieves a question by its display identifier
// @Summary Get a question by display ID
// @Tags questions
// @Produce json
// @Param human_id path string true "Question display ID, e.g. QB-000042"
// @Success 200 {object} services.QuestionResponse
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /questions/by-human-id/{human_id} [get]
func (h *QuestionHandler) GetQuestionByHumanID(c *gin.Context) {
	humanID := c.Param("human_id")
	if humanID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid question display ID"})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	response, err := h.service.GetByHumanID(c.Request.Context(), humanID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListQuestions lists questions through the search/filter/sort/paginate pipeline
// @Summary List questions
// @Tags questions
// @Produce json
// @Param q query string false "Free text search"
// @Param difficulty query string false "Comma-separated difficulties"
// @Param type query string false "Comma-separated question types"
// @Param sort_by query string false "Sort key"
// @Param sort_order query string false "asc or desc"
// @Param page query int false "Page number (1-indexed)"
// @Param limit query int false "Page size"
// @Success 200 {object} services.QuestionListResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	q, err := parseSearchQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid query parameters", Details: err.Error()})
		return
	}

	response, err := h.service.List(c.Request.Context(), q, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// UpdateQuestion updates a question
// @Summary Update a question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path int true "Question ID"
// @Param request body services.UpdateQuestionRequest true "Question update request"
// @Success 200 {object} services.QuestionResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /questions/{id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid question ID"})
		return
	}

	var req services.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	response, err := h.service.Update(c.Request.Context(), uint(id), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// DeleteQuestion deletes a question
// @Summary Delete a question
// @Tags questions
// @Param id path int true "Question ID"
// @Success 204 "No content"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid question ID"})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), uint(id), userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ===== BULK ENDPOINTS =====

// CreateQuestionsBatch creates a batch of questions
// @Summary Batch create questions
// @Tags questions
// @Accept json
// @Produce json
// @Param request body []services.CreateQuestionRequest true "Question creation requests"
// @Success 201 {object} services.BatchCreateResult
// @Failure 400 {object} ErrorResponse "Bad request"
// @Router /questions/batch [post]
func (h *QuestionHandler) CreateQuestionsBatch(c *gin.Context) {
	var reqs []*services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.service.CreateBatch(c.Request.Context(), reqs, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// BulkDeleteQuestions deletes a batch of questions
// @Summary Bulk delete questions
// @Tags questions
// @Accept json
// @Produce json
// @Param request body services.BulkDeleteRequest true "Bulk delete request"
// @Success 200 {object} services.BulkResult
// @Router /questions/bulk/delete [post]
func (h *QuestionHandler) BulkDeleteQuestions(c *gin.Context) {
	var req services.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.service.BulkDelete(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BulkSetActiveQuestions flips active flags on a batch of questions
// @Summary Bulk activate or deactivate questions
// @Tags questions
// @Accept json
// @Produce json
// @Param request body services.BulkSetActiveRequest true "Bulk activity request"
// @Success 200 {object} services.BulkResult
// @Router /questions/bulk/activity [post]
func (h *QuestionHandler) BulkSetActiveQuestions(c *gin.Context) {
	var req services.BulkSetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.service.BulkSetActive(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BulkTagQuestions merges tags into a batch of questions
// @Summary Bulk tag questions
// @Tags questions
// @Accept json
// @Produce json
// @Param request body services.BulkTagRequest true "Bulk tag request"
// @Success 200 {object} services.BulkResult
// @Router /questions/bulk/tags [post]
func (h *QuestionHandler) BulkTagQuestions(c *gin.Context) {
	var req services.BulkTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.service.BulkTag(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ===== QUERY BINDING =====

// parseSearchQuery binds the pipeline input from query parameters. Unknown
// sort keys are rejected here, before the service runs.
func parseSearchQuery(c *gin.Context) (query.SearchQuery, error) {
	q := query.DefaultQuery()
	q.Query = c.Query("q")

	if v := c.Query("sort_by"); v != "" {
		key := query.SortKey(v)
		if !key.Valid() {
			return q, services.ErrInvalidSortKey
		}
		q.SortBy = key
	}
	if v := c.Query("sort_order"); v != "" {
		dir := query.SortDirection(v)
		if !dir.Valid() {
			dir = query.SortDesc
		}
		q.SortOrder = dir
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Page = n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}

	filters, err := parseQuestionFilters(c)
	if err != nil {
		return q, err
	}
	q.Filters = filters

	return q, nil
}

func parseQuestionFilters(c *gin.Context) (query.QuestionFilters, error) {
	var f query.QuestionFilters

	for _, d := range splitParam(c.Query("difficulty")) {
		f.Difficulty = append(f.Difficulty, models.DifficultyLevel(d))
	}
	for _, t := range splitParam(c.Query("type")) {
		f.Type = append(f.Type, models.QuestionType(t))
	}

	f.Tags = splitParam(c.Query("tags"))
	f.SourceTags = splitParam(c.Query("source_tags"))
	f.ExamTags = splitParam(c.Query("exam_tags"))

	if v := c.Query("hierarchy_item_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return f, err
		}
		itemID := uint(id)
		f.HierarchyItemID = &itemID
	}
	if v := c.Query("created_by"); v != "" {
		f.CreatedBy = &v
	}

	if v := c.Query("date_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.DateFrom = &t
	}
	if v := c.Query("date_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.DateTo = &t
	}

	var err error
	if f.PointsMin, err = intParam(c, "points_min"); err != nil {
		return f, err
	}
	if f.PointsMax, err = intParam(c, "points_max"); err != nil {
		return f, err
	}
	if f.TimeLimitMin, err = intParam(c, "time_limit_min"); err != nil {
		return f, err
	}
	if f.TimeLimitMax, err = intParam(c, "time_limit_max"); err != nil {
		return f, err
	}

	if f.HasExplanation, err = boolParam(c, "has_explanation"); err != nil {
		return f, err
	}
	if f.HasReferences, err = boolParam(c, "has_references"); err != nil {
		return f, err
	}
	if f.IsActive, err = boolParam(c, "is_active"); err != nil {
		return f, err
	}

	return f, nil
}

func splitParam(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intParam(c *gin.Context, name string) (*int, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func boolParam(c *gin.Context, name string) (*bool, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

type HierarchyHandler struct {
	BaseHandler
	service services.HierarchyService
}

func NewHierarchyHandler(service services.HierarchyService, logger utils.Logger) *HierarchyHandler {
	return &HierarchyHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetTree returns the full taxonomy tree of one type
// @Summary Get a hierarchy tree
// @Tags hierarchy
// @Produce json
// @Param type path string true "Hierarchy type (question-bank or previous-papers)"
// @Success 200 {object} services.HierarchyTreeResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Router /hierarchy/tree/{type} [get]
func (h *HierarchyHandler) GetTree(c *gin.Context) {
	hierarchyType := models.HierarchyType(c.Param("type"))
	if !hierarchyType.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid hierarchy type"})
		return
	}

	response, err := h.service.GetTree(c.Request.Context(), hierarchyType)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// CreateItem creates a hierarchy node
// @Summary Create a hierarchy item
// @Tags hierarchy
// @Accept json
// @Produce json
// @Param request body services.CreateHierarchyRequest true "Hierarchy creation request"
// @Success 201 {object} models.HierarchyItem
// @Failure 400 {object} ErrorResponse "Bad request"
// @Router /hierarchy [post]
func (h *HierarchyHandler) CreateItem(c *gin.Context) {
	var req services.CreateHierarchyRequest
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

	item, err := h.service.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// GetItem retrieves a hierarchy node by ID
// @Summary Get a hierarchy item
// @Tags hierarchy
// @Produce json
// @Param id path int true "Hierarchy item ID"
// @Success 200 {object} models.HierarchyItem
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /hierarchy/{id} [get]
func (h *HierarchyHandler) GetItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	item, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// UpdateItem updates a hierarchy node
// @Summary Update a hierarchy item
// @Tags hierarchy
// @Accept json
// @Produce json
// @Param id path int true "Hierarchy item ID"
// @Param request body services.UpdateHierarchyRequest true "Hierarchy update request"
// @Success 200 {object} models.HierarchyItem
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /hierarchy/{id} [put]
func (h *HierarchyHandler) UpdateItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	var req services.UpdateHierarchyRequest
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

	item, err := h.service.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteItem deletes a leaf hierarchy node
// @Summary Delete a hierarchy item without children
// @Tags hierarchy
// @Param id path int true "Hierarchy item ID"
// @Success 204 "No content"
// @Failure 400 {object} ErrorResponse "Item has children"
// @Router /hierarchy/{id} [delete]
func (h *HierarchyHandler) DeleteItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CascadeDeleteItem deletes a node and its entire subtree
// @Summary Cascade delete a hierarchy subtree
// @Tags hierarchy
// @Produce json
// @Param id path int true "Hierarchy item ID"
// @Success 200 {object} services.CascadeDeleteResult
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /hierarchy/{id}/cascade [delete]
func (h *HierarchyHandler) CascadeDeleteItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.service.CascadeDelete(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetChildren lists the direct children of a node
// @Summary Get the children of a hierarchy item
// @Tags hierarchy
// @Produce json
// @Param id path int true "Hierarchy item ID"
// @Success 200 {array} models.HierarchyItem
// @Router /hierarchy/{id}/children [get]
func (h *HierarchyHandler) GetChildren(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	children, err := h.service.GetChildren(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, children)
}

// GetPath returns the root-first ancestor chain of a node
// @Summary Get the path from the root to a hierarchy item
// @Tags hierarchy
// @Produce json
// @Param id path int true "Hierarchy item ID"
// @Success 200 {array} models.HierarchyItem
// @Router /hierarchy/{id}/path [get]
func (h *HierarchyHandler) GetPath(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	path, err := h.service.GetPath(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, path)
}

func (h *HierarchyHandler) itemID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid hierarchy item ID"})
		return 0, false
	}
	return uint(id), true
}

package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

// maxImportSize caps uploaded import payloads at 10 MiB.
const maxImportSize = 10 << 20

type ImportExportHandler struct {
	BaseHandler
	service services.ImportExportService
}

func NewImportExportHandler(service services.ImportExportService, logger utils.Logger) *ImportExportHandler {
	return &ImportExportHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ExportQuestions exports questions to a downloadable file
// @Summary Export questions
// @Tags import-export
// @Accept json
// @Produce octet-stream
// @Param request body services.ExportRequest true "Export request"
// @Success 200 {file} binary "Exported file"
// @Failure 400 {object} ErrorResponse "Unsupported format"
// @Router /questions/export [post]
func (h *ImportExportHandler) ExportQuestions(c *gin.Context) {
	var req services.ExportRequest
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

	result, err := h.service.Export(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Header("X-Export-Count", fmt.Sprintf("%d", result.Count))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// ImportQuestions imports questions from an uploaded file or raw body
// @Summary Import questions
// @Tags import-export
// @Accept multipart/form-data
// @Produce json
// @Param format formData string true "Import format (json or csv)"
// @Param file formData file true "Import file"
// @Success 200 {object} services.ImportResult
// @Failure 400 {object} ErrorResponse "Bad request"
// @Router /questions/import [post]
func (h *ImportExportHandler) ImportQuestions(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	req, err := h.buildImportRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid import request",
			Details: err.Error(),
		})
		return
	}

	result, err := h.service.Import(c.Request.Context(), req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// buildImportRequest accepts either a multipart upload (form fields plus a
// "file" part) or a raw body with the format in a query parameter.
func (h *ImportExportHandler) buildImportRequest(c *gin.Context) (*services.ImportRequest, error) {
	req := &services.ImportRequest{}

	if file, err := c.FormFile("file"); err == nil {
		req.Format = services.ImportFormat(c.PostForm("format"))
		req.DefaultDifficulty = models.DifficultyLevel(c.PostForm("default_difficulty"))
		if v := c.PostForm("default_points"); v != "" {
			fmt.Sscanf(v, "%d", &req.DefaultPoints)
		}
		if v := c.PostForm("hierarchy_item_id"); v != "" {
			var id uint
			if _, err := fmt.Sscanf(v, "%d", &id); err == nil {
				req.HierarchyItemID = &id
			}
		}

		if file.Size > maxImportSize {
			return nil, fmt.Errorf("file exceeds the %d byte limit", maxImportSize)
		}
		f, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file: %w", err)
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, maxImportSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read uploaded file: %w", err)
		}
		req.Data = data
		return req, nil
	}

	// Raw body fallback
	req.Format = services.ImportFormat(c.Query("format"))
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty import payload")
	}
	req.Data = data
	return req, nil
}

package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/query"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type CreateHierarchyRequest = validator.HierarchyCreateRequest
type UpdateHierarchyRequest = validator.HierarchyUpdateRequest

type QuestionResponse struct {
	*models.Question
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type QuestionListResponse struct {
	Questions  []*QuestionResponse  `json:"questions"`
	Pagination query.PaginationInfo `json:"pagination"`
}

// ===== BULK OPERATION DTOs =====

type BulkDeleteRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1"`
}

type BulkSetActiveRequest struct {
	IDs    []uint `json:"ids" validate:"required,min=1"`
	Active bool   `json:"active"`
}

type BulkTagRequest struct {
	IDs  []uint   `json:"ids" validate:"required,min=1"`
	Tags []string `json:"tags" validate:"required,min=1,dive,max=50"`
}

// BulkResult reports per-item outcomes of a bulk operation. Failures do not
// abort the rest of the batch.
type BulkResult struct {
	Succeeded []uint          `json:"succeeded"`
	Failed    map[uint]string `json:"failed,omitempty"`
}

// BatchCreateResult reports a batch create: what was stored plus per-row
// failures, which never abort the rest.
type BatchCreateResult struct {
	Created []*QuestionResponse `json:"created"`
	Errors  []ImportRowError    `json:"errors,omitempty"`
}

// ===== HIERARCHY DTOs =====

type HierarchyTreeResponse struct {
	Type  models.HierarchyType    `json:"type"`
	Items []*models.HierarchyItem `json:"items"`
}

// CascadeDeleteResult reports what a cascade delete removed and detached.
type CascadeDeleteResult struct {
	DeletedItems      []uint          `json:"deleted_items"`
	DetachedQuestions int64           `json:"detached_questions"`
	Failed            map[uint]string `json:"failed,omitempty"`
}

// ===== IMPORT/EXPORT DTOs =====

type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatPDF  ExportFormat = "pdf"
)

func (f ExportFormat) Valid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatXLSX, FormatPDF:
		return true
	}
	return false
}

type ExportRequest struct {
	Format  ExportFormat          `json:"format" validate:"required"`
	Query   string                `json:"query"`
	Filters query.QuestionFilters `json:"filters"`
	IDs     []uint                `json:"ids"` // explicit selection wins over query/filters
}

type ExportResult struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
	Count       int    `json:"count"`
}

type ImportFormat string

const (
	ImportJSON ImportFormat = "json"
	ImportCSV  ImportFormat = "csv"
)

type ImportRequest struct {
	Format ImportFormat `json:"format" validate:"required"`
	Data   []byte       `json:"-"`

	// Defaults applied to rows that omit these fields
	DefaultDifficulty models.DifficultyLevel `json:"default_difficulty"`
	DefaultPoints     int                    `json:"default_points"`
	HierarchyItemID   *uint                  `json:"hierarchy_item_id"`
}

// ImportRowError pins a failure to its source row
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

// ===== DASHBOARD DTOs =====

type DashboardStats struct {
	TotalQuestions     int64                            `json:"total_questions"`
	ActiveQuestions    int64                            `json:"active_questions"`
	InactiveQuestions  int64                            `json:"inactive_questions"`
	QuestionsByType    map[models.QuestionType]int64    `json:"questions_by_type"`
	QuestionsByDiff    map[models.DifficultyLevel]int64 `json:"questions_by_difficulty"`
	QuestionsByCreator map[string]int64                 `json:"questions_by_creator"`
	HierarchyItems     int64                            `json:"hierarchy_items"`
	GeneratedAt        time.Time                        `json:"generated_at"`
}

type RecentQuestionsResponse struct {
	Questions []*models.Question `json:"questions"`
}

// ===== SERVICE INTERFACES =====

type QuestionService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*QuestionResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error)
	GetByHumanID(ctx context.Context, humanID string, userID string) (*QuestionResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List and search operations
	List(ctx context.Context, q query.SearchQuery, userID string) (*QuestionListResponse, error)
	ListAll(ctx context.Context) ([]*models.Question, error)

	// Bulk operations
	CreateBatch(ctx context.Context, reqs []*CreateQuestionRequest, creatorID string) (*BatchCreateResult, error)
	BulkDelete(ctx context.Context, req *BulkDeleteRequest, userID string) (*BulkResult, error)
	BulkSetActive(ctx context.Context, req *BulkSetActiveRequest, userID string) (*BulkResult, error)
	BulkTag(ctx context.Context, req *BulkTagRequest, userID string) (*BulkResult, error)

	// Permission checks
	CanEdit(ctx context.Context, id uint, userID string) (bool, error)
	CanDelete(ctx context.Context, id uint, userID string) (bool, error)
}

type HierarchyService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateHierarchyRequest, creatorID string) (*models.HierarchyItem, error)
	GetByID(ctx context.Context, id uint) (*models.HierarchyItem, error)
	Update(ctx context.Context, id uint, req *UpdateHierarchyRequest, userID string) (*models.HierarchyItem, error)
	Delete(ctx context.Context, id uint, userID string) error

	// Tree operations
	GetTree(ctx context.Context, hierarchyType models.HierarchyType) (*HierarchyTreeResponse, error)
	GetChildren(ctx context.Context, id uint) ([]*models.HierarchyItem, error)
	GetPath(ctx context.Context, id uint) ([]*models.HierarchyItem, error)

	// CascadeDelete removes a node and its entire subtree, detaching the
	// questions filed under any of them.
	CascadeDelete(ctx context.Context, id uint, userID string) (*CascadeDeleteResult, error)
}

type ImportExportService interface {
	Export(ctx context.Context, req *ExportRequest, userID string) (*ExportResult, error)
	Import(ctx context.Context, req *ImportRequest, userID string) (*ImportResult, error)
}

type DashboardService interface {
	GetStats(ctx context.Context) (*DashboardStats, error)
	GetRecentQuestions(ctx context.Context, limit int) (*RecentQuestionsResponse, error)
}

// ServiceManager provides access to all services
type ServiceManager interface {
	Question() QuestionService
	Hierarchy() HierarchyService
	ImportExport() ImportExportService
	Dashboard() DashboardService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

package repositories

import (
	"context"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/query"
	"gorm.io/gorm"
)

// WholesaleLimit caps the full-collection fetch used by the store and by the
// export path. The working set is expected to stay well under this.
const WholesaleLimit = 10000

// QuestionRepository interface for question-specific operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByHumanID(ctx context.Context, tx *gorm.DB, humanID string) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Bulk operations
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error)
	DeleteBatch(ctx context.Context, tx *gorm.DB, ids []uint) error
	SetActiveBatch(ctx context.Context, tx *gorm.DB, ids []uint, active bool) error
	AddTagsBatch(ctx context.Context, tx *gorm.DB, ids []uint, tags []string) error

	// Query operations
	ListAll(ctx context.Context, tx *gorm.DB) ([]*models.Question, error) // wholesale fetch, WholesaleLimit cap
	List(ctx context.Context, tx *gorm.DB, filters query.QuestionFilters, page, limit int) ([]*models.Question, int64, error)
	GetByHierarchyItem(ctx context.Context, tx *gorm.DB, hierarchyItemID uint) ([]*models.Question, error)
	DetachFromHierarchyItems(ctx context.Context, tx *gorm.DB, hierarchyItemIDs []uint) error

	// Identity
	NextHumanID(ctx context.Context, tx *gorm.DB) (string, error)

	// Statistics
	CountByDifficulty(ctx context.Context, tx *gorm.DB) (map[models.DifficultyLevel]int64, error)
	CountByType(ctx context.Context, tx *gorm.DB) (map[models.QuestionType]int64, error)
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

// HierarchyRepository interface for taxonomy tree operations
type HierarchyRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, item *models.HierarchyItem) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.HierarchyItem, error)
	Update(ctx context.Context, tx *gorm.DB, item *models.HierarchyItem) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Tree operations
	GetTree(ctx context.Context, tx *gorm.DB, hierarchyType models.HierarchyType) ([]*models.HierarchyItem, error)
	GetChildren(ctx context.Context, tx *gorm.DB, parentID uint) ([]*models.HierarchyItem, error)
	GetDescendants(ctx context.Context, tx *gorm.DB, id uint) ([]*models.HierarchyItem, error)
	GetPath(ctx context.Context, tx *gorm.DB, id uint) ([]*models.HierarchyItem, error)

	// Rollup maintenance
	RecountQuestions(ctx context.Context, tx *gorm.DB, id uint) error
}

// DashboardRepository interface for analytics queries
type DashboardRepository interface {
	GetQuestionBankStats(ctx context.Context) (*QuestionBankStats, error)
	GetRecentQuestions(ctx context.Context, limit int) ([]*models.Question, error)
}

// ===== SHARED STATISTICS STRUCTS =====

type QuestionBankStats struct {
	TotalQuestions     int64                            `json:"total_questions"`
	ActiveQuestions    int64                            `json:"active_questions"`
	QuestionsByType    map[models.QuestionType]int64    `json:"questions_by_type"`
	QuestionsByDiff    map[models.DifficultyLevel]int64 `json:"questions_by_difficulty"`
	HierarchyItems     int64                            `json:"hierarchy_items"`
	QuestionsByCreator map[string]int64                 `json:"questions_by_creator"`
}

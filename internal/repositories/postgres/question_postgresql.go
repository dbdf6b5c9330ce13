package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/cache"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/query"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

// ===== BASIC CRUD OPERATIONS =====

// humanIDMintAttempts bounds the retries when a minted human id loses the
// race to the unique index.
const humanIDMintAttempts = 3

// isDuplicateKey reports whether an insert collided with a unique index.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "duplicate key")
}

// retryOnMintedIDCollision runs fn, retrying when a minted human id hit the
// unique index because a concurrent create claimed the same number. reset
// clears the minted ids so the next attempt mints fresh ones.
func retryOnMintedIDCollision(minted bool, reset func(), fn func() error) error {
	var err error
	for attempt := 0; attempt < humanIDMintAttempts; attempt++ {
		if err = fn(); err == nil || !minted || !isDuplicateKey(err) {
			return err
		}
		reset()
	}
	return err
}

// Create creates a new question, minting a human id when none was supplied,
// and invalidates list caches. Minted ids that collide with a concurrent
// create are reminted and retried.
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	minted := question.HumanID == ""

	err := retryOnMintedIDCollision(minted, func() { question.HumanID = "" }, func() error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if question.HumanID == "" {
				humanID, err := q.NextHumanID(ctx, tx)
				if err != nil {
					return err
				}
				question.HumanID = humanID
			}
			if err := tx.Create(question).Error; err != nil {
				return fmt.Errorf("failed to create question: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, fmt.Sprintf("creator:%s:*", question.CreatedBy))
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, "list:*")
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Stats, "bank:*")

	return nil
}

// GetByID retrieves a question by ID with caching
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var question models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.Question
		if err := db.WithContext(ctx).First(&dbQuestion, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get question: %w", err)
		}
		return &dbQuestion, nil
	})

	if err != nil {
		return nil, err
	}

	return &question, nil
}

// GetByHumanID retrieves a question by its display identifier
func (q *QuestionPostgreSQL) GetByHumanID(ctx context.Context, tx *gorm.DB, humanID string) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).Where("human_id = ?", humanID).First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("question %s: %w", humanID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get question by human id: %w", err)
	}
	return &question, nil
}

// Update updates a question
func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID, question.CreatedBy)

	return nil
}

// Delete removes a question
func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)

	// Fetch creator first for cache invalidation
	var question models.Question
	if err := db.WithContext(ctx).Select("id, created_by").First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to get question before delete: %w", err)
	}

	if err := db.WithContext(ctx).Delete(&models.Question{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id, question.CreatedBy)

	return nil
}

// ===== BULK OPERATIONS =====

// CreateBatch creates multiple questions in a batch
func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	var mintedIdx []int
	for i, question := range questions {
		if question.HumanID == "" {
			mintedIdx = append(mintedIdx, i)
		}
	}
	reset := func() {
		for _, i := range mintedIdx {
			questions[i].HumanID = ""
		}
	}

	db := q.getDB(tx)
	err := retryOnMintedIDCollision(len(mintedIdx) > 0, reset, func() error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, question := range questions {
				if question.HumanID == "" {
					humanID, err := q.NextHumanID(ctx, tx)
					if err != nil {
						return err
					}
					question.HumanID = humanID
				}
				if err := tx.Create(question).Error; err != nil {
					return fmt.Errorf("failed to create question batch item: %w", err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, "list:*")
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Stats, "bank:*")
	return nil
}

// GetByIDs retrieves multiple questions by their IDs
func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}

	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions by IDs: %w", err)
	}

	return questions, nil
}

// DeleteBatch deletes multiple questions
func (q *QuestionPostgreSQL) DeleteBatch(ctx context.Context, tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	db := q.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.Question{}, ids).Error; err != nil {
		return fmt.Errorf("failed to delete questions batch: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, "*")
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Stats, "bank:*")
	return nil
}

// SetActiveBatch flips the active flag on a set of questions
func (q *QuestionPostgreSQL) SetActiveBatch(ctx context.Context, tx *gorm.DB, ids []uint, active bool) error {
	if len(ids) == 0 {
		return nil
	}

	db := q.getDB(tx)
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id IN ?", ids).
		Update("is_active", active).Error; err != nil {
		return fmt.Errorf("failed to update active flag: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, "*")
	return nil
}

// AddTagsBatch merges tags into each question's free-form tag family.
// The merge happens in Go; jsonb set arithmetic in SQL is not worth the
// obscurity at this collection size.
func (q *QuestionPostgreSQL) AddTagsBatch(ctx context.Context, tx *gorm.DB, ids []uint, tags []string) error {
	if len(ids) == 0 || len(tags) == 0 {
		return nil
	}

	db := q.getDB(tx)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var questions []*models.Question
		if err := tx.Where("id IN ?", ids).Find(&questions).Error; err != nil {
			return fmt.Errorf("failed to load questions for tagging: %w", err)
		}

		for _, question := range questions {
			existing := make(map[string]bool, len(question.Tags))
			for _, t := range question.Tags {
				existing[t] = true
			}
			merged := []string(question.Tags)
			for _, t := range tags {
				if !existing[t] {
					merged = append(merged, t)
				}
			}
			question.Tags = merged
			if err := tx.Model(question).Update("tags", question.Tags).Error; err != nil {
				return fmt.Errorf("failed to tag question %d: %w", question.ID, err)
			}
		}

		cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, "*")
		return nil
	})
}

// ===== QUERY OPERATIONS =====

// ListAll performs the wholesale fetch the store and export paths build on.
// The result is ordered by creation time so downstream pipeline runs start
// from a deterministic order.
func (q *QuestionPostgreSQL) ListAll(ctx context.Context, tx *gorm.DB) ([]*models.Question, error) {
	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Limit(repositories.WholesaleLimit).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// List retrieves questions with SQL-side filtering and pagination
func (q *QuestionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters query.QuestionFilters, page, limit int) ([]*models.Question, int64, error) {
	db := q.getDB(tx)
	dbQuery := db.WithContext(ctx).Model(&models.Question{})

	dbQuery = q.helpers.ApplyQuestionFilters(dbQuery, filters)

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	dbQuery = q.helpers.ApplyPaginationAndSort(dbQuery, query.SortByCreatedAt, query.SortDesc, page, limit)

	var questions []*models.Question
	if err := dbQuery.Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

// GetByHierarchyItem retrieves questions filed directly under a taxonomy node
func (q *QuestionPostgreSQL) GetByHierarchyItem(ctx context.Context, tx *gorm.DB, hierarchyItemID uint) ([]*models.Question, error) {
	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Where("hierarchy_item_id = ?", hierarchyItemID).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions by hierarchy item: %w", err)
	}
	return questions, nil
}

// DetachFromHierarchyItems clears the taxonomy reference on questions filed
// under the given nodes. Used by cascade delete; the denormalized path
// snapshot is kept for display.
func (q *QuestionPostgreSQL) DetachFromHierarchyItems(ctx context.Context, tx *gorm.DB, hierarchyItemIDs []uint) error {
	if len(hierarchyItemIDs) == 0 {
		return nil
	}

	db := q.getDB(tx)
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("hierarchy_item_id IN ?", hierarchyItemIDs).
		Update("hierarchy_item_id", nil).Error; err != nil {
		return fmt.Errorf("failed to detach questions from hierarchy: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, "*")
	return nil
}

// NextHumanID mints the next display identifier (QB-000042).
func (q *QuestionPostgreSQL) NextHumanID(ctx context.Context, tx *gorm.DB) (string, error) {
	db := q.getDB(tx)
	var maxID uint
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error; err != nil {
		return "", fmt.Errorf("failed to mint human id: %w", err)
	}
	return fmt.Sprintf("QB-%06d", maxID+1), nil
}

// ===== STATISTICS =====

type groupCount struct {
	Key   string
	Count int64
}

// CountByDifficulty returns question counts grouped by difficulty
func (q *QuestionPostgreSQL) CountByDifficulty(ctx context.Context, tx *gorm.DB) (map[models.DifficultyLevel]int64, error) {
	db := q.getDB(tx)
	var rows []groupCount
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Select("difficulty AS key, COUNT(*) AS count").
		Group("difficulty").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count by difficulty: %w", err)
	}

	out := make(map[models.DifficultyLevel]int64, len(rows))
	for _, r := range rows {
		out[models.DifficultyLevel(r.Key)] = r.Count
	}
	return out, nil
}

// CountByType returns question counts grouped by question type
func (q *QuestionPostgreSQL) CountByType(ctx context.Context, tx *gorm.DB) (map[models.QuestionType]int64, error) {
	db := q.getDB(tx)
	var rows []groupCount
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Select("type AS key, COUNT(*) AS count").
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count by type: %w", err)
	}

	out := make(map[models.QuestionType]int64, len(rows))
	for _, r := range rows {
		out[models.QuestionType(r.Key)] = r.Count
	}
	return out, nil
}

// CountAll returns the total number of questions
func (q *QuestionPostgreSQL) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	db := q.getDB(tx)
	var total int64
	if err := db.WithContext(ctx).Model(&models.Question{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return total, nil
}

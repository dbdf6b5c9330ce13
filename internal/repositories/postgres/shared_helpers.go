package postgres

import (
	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/query"
)

// SharedHelpers contains common database query building
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyQuestionFilters translates the pipeline filter set into SQL for
// server-side listing. Semantics mirror query.Filter: AND across dimensions,
// OR within a dimension, tag families on jsonb intersection.
func (h *SharedHelpers) ApplyQuestionFilters(q *gorm.DB, filters query.QuestionFilters) *gorm.DB {
	if len(filters.Difficulty) > 0 {
		q = q.Where("difficulty IN ?", filters.Difficulty)
	}
	if len(filters.Type) > 0 {
		q = q.Where("type IN ?", filters.Type)
	}

	if len(filters.Tags) > 0 {
		q = q.Where("jsonb_exists_any(tags, ARRAY[?])", []string(filters.Tags))
	}
	if len(filters.SourceTags) > 0 {
		q = q.Where("jsonb_exists_any(source_tags, ARRAY[?])", []string(filters.SourceTags))
	}
	if len(filters.ExamTags) > 0 {
		q = q.Where("jsonb_exists_any(exam_tags, ARRAY[?])", []string(filters.ExamTags))
	}

	if filters.HierarchyItemID != nil {
		q = q.Where("hierarchy_item_id = ?", *filters.HierarchyItemID)
	}
	if filters.CreatedBy != nil {
		q = q.Where("created_by = ?", *filters.CreatedBy)
	}

	if filters.DateFrom != nil {
		q = q.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		q = q.Where("created_at <= ?", *filters.DateTo)
	}

	if filters.PointsMin != nil {
		q = q.Where("points >= ?", *filters.PointsMin)
	}
	if filters.PointsMax != nil {
		q = q.Where("points <= ?", *filters.PointsMax)
	}

	// Untimed questions are excluded from time-limit filtered results.
	if filters.TimeLimitMin != nil {
		q = q.Where("time_limit IS NOT NULL AND time_limit >= ?", *filters.TimeLimitMin)
	}
	if filters.TimeLimitMax != nil {
		q = q.Where("time_limit IS NOT NULL AND time_limit <= ?", *filters.TimeLimitMax)
	}

	if filters.HasExplanation != nil {
		if *filters.HasExplanation {
			q = q.Where("explanation IS NOT NULL AND explanation <> ''")
		} else {
			q = q.Where("explanation IS NULL OR explanation = ''")
		}
	}
	if filters.HasReferences != nil {
		if *filters.HasReferences {
			q = q.Where("\"references\" IS NOT NULL AND \"references\" <> ''")
		} else {
			q = q.Where("\"references\" IS NULL OR \"references\" = ''")
		}
	}
	if filters.IsActive != nil {
		q = q.Where("is_active = ?", *filters.IsActive)
	}

	return q
}

// ApplyPaginationAndSort applies the page window and a validated sort key.
// Invalid keys fall back to created_at; the handler layer rejects them
// before they reach here.
func (h *SharedHelpers) ApplyPaginationAndSort(q *gorm.DB, sortBy query.SortKey, sortOrder query.SortDirection, page, limit int) *gorm.DB {
	column := "created_at"
	switch sortBy {
	case query.SortByCreatedAt:
		column = "created_at"
	case query.SortByUpdatedAt:
		column = "updated_at"
	case query.SortByPoints:
		column = "points"
	case query.SortByHumanID:
		column = "human_id"
	case query.SortByType:
		column = "type"
	case query.SortByDifficulty:
		// Rank order, not lexicographic.
		dir := "ASC"
		if sortOrder == query.SortDesc {
			dir = "DESC"
		}
		q = q.Order("CASE difficulty WHEN 'easy' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END " + dir)
		return applyWindow(q, page, limit)
	case query.SortByTagsCount:
		dir := "ASC"
		if sortOrder == query.SortDesc {
			dir = "DESC"
		}
		q = q.Order("jsonb_array_length(tags) + jsonb_array_length(source_tags) + jsonb_array_length(exam_tags) " + dir)
		return applyWindow(q, page, limit)
	}

	if sortOrder == query.SortDesc {
		q = q.Order(column + " DESC")
	} else {
		q = q.Order(column + " ASC")
	}
	return applyWindow(q, page, limit)
}

func applyWindow(q *gorm.DB, page, limit int) *gorm.DB {
	if limit < 1 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return q.Limit(limit).Offset((page - 1) * limit)
}

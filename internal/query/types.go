package query

import (
	"time"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// QuestionFilters is the multi-field predicate set applied by Filter.
// Absent fields (nil pointers, empty slices) impose no constraint on their
// dimension. Dimensions combine with AND; values inside a multi-value
// dimension combine with OR.
type QuestionFilters struct {
	Difficulty []models.DifficultyLevel `json:"difficulty,omitempty"`
	Type       []models.QuestionType    `json:"type,omitempty"`

	// Tag families match on non-empty intersection, each family independently.
	Tags       []string `json:"tags,omitempty"`
	SourceTags []string `json:"source_tags,omitempty"`
	ExamTags   []string `json:"exam_tags,omitempty"`

	HierarchyItemID *uint   `json:"hierarchy_item_id,omitempty"`
	CreatedBy       *string `json:"created_by,omitempty"`

	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	PointsMin *int `json:"points_min,omitempty"`
	PointsMax *int `json:"points_max,omitempty"`

	// Time-limit bounds apply only to timed questions; a question without a
	// time limit never matches a time-limit range.
	TimeLimitMin *int `json:"time_limit_min,omitempty"`
	TimeLimitMax *int `json:"time_limit_max,omitempty"`

	HasExplanation *bool `json:"has_explanation,omitempty"`
	HasReferences  *bool `json:"has_references,omitempty"`
	IsActive       *bool `json:"is_active,omitempty"`
}

// IsEmpty reports whether no dimension is constrained.
func (f QuestionFilters) IsEmpty() bool {
	return len(f.Difficulty) == 0 && len(f.Type) == 0 &&
		len(f.Tags) == 0 && len(f.SourceTags) == 0 && len(f.ExamTags) == 0 &&
		f.HierarchyItemID == nil && f.CreatedBy == nil &&
		f.DateFrom == nil && f.DateTo == nil &&
		f.PointsMin == nil && f.PointsMax == nil &&
		f.TimeLimitMin == nil && f.TimeLimitMax == nil &&
		f.HasExplanation == nil && f.HasReferences == nil && f.IsActive == nil
}

// SortKey is the closed set of supported sort keys. Keeping the set closed
// makes an unsupported key a binding error instead of a silent no-op.
type SortKey string

const (
	SortByCreatedAt  SortKey = "created_at"
	SortByUpdatedAt  SortKey = "updated_at"
	SortByDifficulty SortKey = "difficulty"
	SortByPoints     SortKey = "points"
	SortByHumanID    SortKey = "human_id"
	SortByType       SortKey = "type"
	SortByTagsCount  SortKey = "tags_count"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortByCreatedAt, SortByUpdatedAt, SortByDifficulty, SortByPoints,
		SortByHumanID, SortByType, SortByTagsCount:
		return true
	}
	return false
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// SearchQuery bundles the complete pipeline input: free text, filters, sort
// and page window.
type SearchQuery struct {
	Query     string          `json:"query"`
	Filters   QuestionFilters `json:"filters"`
	SortBy    SortKey         `json:"sort_by"`
	SortOrder SortDirection   `json:"sort_order"`
	Page      int             `json:"page"`
	Limit     int             `json:"limit"`
}

// DefaultQuery returns the pipeline input used when the caller supplies
// nothing: newest first, first page of 20.
func DefaultQuery() SearchQuery {
	return SearchQuery{
		SortBy:    SortByCreatedAt,
		SortOrder: SortDesc,
		Page:      1,
		Limit:     20,
	}
}

// PaginationInfo describes the page window computed by Paginate.
type PaginationInfo struct {
	Page    int   `json:"page"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

// Result is a derived page plus its pagination metadata.
type Result struct {
	Questions  []*models.Question `json:"questions"`
	Pagination PaginationInfo     `json:"pagination"`
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	SingleChoice       QuestionType = "single_choice"
	MultipleChoice     QuestionType = "multiple_choice"
	TrueFalse          QuestionType = "true_false"
	AssertionReasoning QuestionType = "assertion_reasoning"
)

func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultipleChoice, TrueFalse, AssertionReasoning:
		return true
	}
	return false
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

func (d DifficultyLevel) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// DifficultyRank orders difficulties for sorting. Lexicographic order would
// put "hard" before "medium", so an explicit rank map is used instead.
var DifficultyRank = map[DifficultyLevel]int{
	DifficultyEasy:   1,
	DifficultyMedium: 2,
	DifficultyHard:   3,
}

// Option is a single answer option stored inside the question's JSONB column.
type Option struct {
	Text        string  `json:"text" validate:"required"`
	IsCorrect   bool    `json:"is_correct"`
	Order       int     `json:"order"`
	Explanation *string `json:"explanation,omitempty"`
	References  *string `json:"references,omitempty"`
}

// HierarchyPath is a denormalized snapshot of the question's position in the
// taxonomy tree, kept for display without re-fetching the tree.
type HierarchyPath struct {
	Year    string `json:"year,omitempty"`
	Subject string `json:"subject,omitempty"`
	Part    string `json:"part,omitempty"`
	Section string `json:"section,omitempty"`
	Chapter string `json:"chapter,omitempty"`
}

type Question struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	HumanID string `json:"human_id" gorm:"uniqueIndex;size:32"` // user-facing display id, e.g. "QB-000042"

	Type       QuestionType    `json:"type" gorm:"not null;index" validate:"required"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"default:medium;index"`

	// Content. Text and option texts are rich text (HTML).
	Text        string                      `json:"text" gorm:"type:text;not null" validate:"required"`
	Explanation *string                     `json:"explanation" gorm:"type:text"`
	References  *string                     `json:"references" gorm:"type:text"`
	Options     datatypes.JSONSlice[Option] `json:"options" gorm:"type:jsonb"`

	// Assertion-reasoning questions carry two statements alongside the options.
	Assertion *string `json:"assertion" gorm:"type:text"`
	Reasoning *string `json:"reasoning" gorm:"type:text"`

	// Metadata
	Points    int  `json:"points" gorm:"default:1" validate:"min=1,max=100"`
	TimeLimit *int `json:"time_limit"` // seconds; nil means untimed
	IsActive  bool `json:"is_active" gorm:"default:true;index"`

	Tags       datatypes.JSONSlice[string] `json:"tags" gorm:"type:jsonb"`
	SourceTags datatypes.JSONSlice[string] `json:"source_tags" gorm:"type:jsonb"`
	ExamTags   datatypes.JSONSlice[string] `json:"exam_tags" gorm:"type:jsonb"`

	// Taxonomy placement
	HierarchyItemID *uint                             `json:"hierarchy_item_id" gorm:"index"`
	HierarchyPath   datatypes.JSONType[HierarchyPath] `json:"hierarchy_path" gorm:"type:jsonb"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	HierarchyItem *HierarchyItem `json:"hierarchy_item,omitempty" gorm:"foreignKey:HierarchyItemID"`
	Creator       User           `json:"creator" gorm:"foreignKey:CreatedBy"`
}

// TagsCount is the combined size of all three tag families. Used by the
// tags_count sort key.
func (q *Question) TagsCount() int {
	return len(q.Tags) + len(q.SourceTags) + len(q.ExamTags)
}

// HasExplanation reports whether the question carries a non-empty explanation.
func (q *Question) HasExplanation() bool {
	return q.Explanation != nil && *q.Explanation != ""
}

// HasReferences reports whether the question carries non-empty references.
func (q *Question) HasReferences() bool {
	return q.References != nil && *q.References != ""
}

// CorrectOptionCount counts options flagged correct.
func (q *Question) CorrectOptionCount() int {
	n := 0
	for _, opt := range q.Options {
		if opt.IsCorrect {
			n++
		}
	}
	return n
}

package validator

import (
	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// QuestionCreateRequest represents the request structure for creating questions
type QuestionCreateRequest struct {
	Type       models.QuestionType    `json:"type" validate:"required,question_type"`
	Text       string                 `json:"text" validate:"required,min=1,max=10000"`
	Difficulty models.DifficultyLevel `json:"difficulty" validate:"required,difficulty_level"`

	Options []models.Option `json:"options" validate:"required,min=2,max=10,dive"`

	Assertion *string `json:"assertion" validate:"omitempty,max=2000"`
	Reasoning *string `json:"reasoning" validate:"omitempty,max=2000"`

	Points    int  `json:"points" validate:"required,points_range"`
	TimeLimit *int `json:"time_limit" validate:"omitempty,time_limit"`
	IsActive  *bool `json:"is_active"`

	Tags       []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	SourceTags []string `json:"source_tags" validate:"omitempty,max=20,dive,max=50"`
	ExamTags   []string `json:"exam_tags" validate:"omitempty,max=20,dive,max=50"`

	Explanation *string `json:"explanation" validate:"omitempty,max=5000"`
	References  *string `json:"references" validate:"omitempty,max=5000"`

	HierarchyItemID *uint `json:"hierarchy_item_id"`
}

// QuestionUpdateRequest represents the request structure for updating questions
type QuestionUpdateRequest struct {
	Type       *models.QuestionType    `json:"type" validate:"omitempty,question_type"`
	Text       *string                 `json:"text" validate:"omitempty,min=1,max=10000"`
	Difficulty *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`

	Options []models.Option `json:"options" validate:"omitempty,min=2,max=10,dive"`

	Assertion *string `json:"assertion" validate:"omitempty,max=2000"`
	Reasoning *string `json:"reasoning" validate:"omitempty,max=2000"`

	Points    *int  `json:"points" validate:"omitempty,points_range"`
	TimeLimit *int  `json:"time_limit" validate:"omitempty,time_limit"`
	IsActive  *bool `json:"is_active"`

	Tags       []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	SourceTags []string `json:"source_tags" validate:"omitempty,max=20,dive,max=50"`
	ExamTags   []string `json:"exam_tags" validate:"omitempty,max=20,dive,max=50"`

	Explanation *string `json:"explanation" validate:"omitempty,max=5000"`
	References  *string `json:"references" validate:"omitempty,max=5000"`

	HierarchyItemID *uint `json:"hierarchy_item_id"`
}

// HierarchyCreateRequest represents the request structure for creating taxonomy nodes
type HierarchyCreateRequest struct {
	Name     string                `json:"name" validate:"required,min=1,max=200"`
	Type     models.HierarchyType  `json:"type" validate:"required,hierarchy_type"`
	Level    models.HierarchyLevel `json:"level" validate:"required"`
	Order    int                   `json:"order" validate:"min=0"`
	ParentID *uint                 `json:"parent_id"`
}

// HierarchyUpdateRequest represents the request structure for updating taxonomy nodes
type HierarchyUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Order       *int    `json:"order" validate:"omitempty,min=0"`
	IsPublished *bool   `json:"is_published"`
}

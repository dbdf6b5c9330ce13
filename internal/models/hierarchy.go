package models

import (
	"time"
)

// HierarchyType identifies one of the two independent taxonomy trees.
// The trees share no nodes.
type HierarchyType string

const (
	HierarchyQuestionBank   HierarchyType = "question-bank"
	HierarchyPreviousPapers HierarchyType = "previous-papers"
)

func (h HierarchyType) Valid() bool {
	return h == HierarchyQuestionBank || h == HierarchyPreviousPapers
}

// HierarchyLevel names the depth of a node in the tree.
type HierarchyLevel string

const (
	LevelYear    HierarchyLevel = "year"
	LevelSubject HierarchyLevel = "subject"
	LevelPart    HierarchyLevel = "part"
	LevelSection HierarchyLevel = "section"
	LevelChapter HierarchyLevel = "chapter"
)

// HierarchyItem is a node in a taxonomy tree. Questions reference nodes by
// id; the tree itself is read-mostly and mutated only through the hierarchy
// service.
type HierarchyItem struct {
	ID    uint           `json:"id" gorm:"primaryKey"`
	Name  string         `json:"name" gorm:"not null;size:200" validate:"required,max=200"`
	Type  HierarchyType  `json:"type" gorm:"not null;index" validate:"required"`
	Level HierarchyLevel `json:"level" gorm:"not null;size:20"`
	Order int            `json:"order" gorm:"default:0"`

	ParentID *uint `json:"parent_id" gorm:"index"`

	// Cached rollup, maintained by the hierarchy repository.
	QuestionCount int  `json:"question_count" gorm:"default:0"`
	IsPublished   bool `json:"is_published" gorm:"default:false"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Parent   *HierarchyItem  `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Children []HierarchyItem `json:"children" gorm:"foreignKey:ParentID"`
}

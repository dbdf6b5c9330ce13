// Package query implements the in-memory question pipeline: four pure stages
// (filter, search, sort, paginate) composed by Run. Stages never mutate their
// input and preserve relative input order; an unmatched criterion yields an
// empty result, never an error.
package query

import (
	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// Filter reduces questions to those matching every constrained dimension of
// the criteria. An empty criteria value returns the input slice unchanged.
func Filter(questions []*models.Question, criteria QuestionFilters) []*models.Question {
	if criteria.IsEmpty() {
		return questions
	}

	out := make([]*models.Question, 0, len(questions))
	for _, q := range questions {
		if matches(q, criteria) {
			out = append(out, q)
		}
	}
	return out
}

func matches(q *models.Question, c QuestionFilters) bool {
	if len(c.Difficulty) > 0 && !containsDifficulty(c.Difficulty, q.Difficulty) {
		return false
	}
	if len(c.Type) > 0 && !containsType(c.Type, q.Type) {
		return false
	}

	if len(c.Tags) > 0 && !intersects(q.Tags, c.Tags) {
		return false
	}
	if len(c.SourceTags) > 0 && !intersects(q.SourceTags, c.SourceTags) {
		return false
	}
	if len(c.ExamTags) > 0 && !intersects(q.ExamTags, c.ExamTags) {
		return false
	}

	if c.HierarchyItemID != nil {
		if q.HierarchyItemID == nil || *q.HierarchyItemID != *c.HierarchyItemID {
			return false
		}
	}
	if c.CreatedBy != nil && q.CreatedBy != *c.CreatedBy {
		return false
	}

	if c.DateFrom != nil && q.CreatedAt.Before(*c.DateFrom) {
		return false
	}
	if c.DateTo != nil && q.CreatedAt.After(*c.DateTo) {
		return false
	}

	if c.PointsMin != nil && q.Points < *c.PointsMin {
		return false
	}
	if c.PointsMax != nil && q.Points > *c.PointsMax {
		return false
	}

	// Untimed questions never match a time-limit range.
	if c.TimeLimitMin != nil || c.TimeLimitMax != nil {
		if q.TimeLimit == nil {
			return false
		}
		if c.TimeLimitMin != nil && *q.TimeLimit < *c.TimeLimitMin {
			return false
		}
		if c.TimeLimitMax != nil && *q.TimeLimit > *c.TimeLimitMax {
			return false
		}
	}

	if c.HasExplanation != nil && q.HasExplanation() != *c.HasExplanation {
		return false
	}
	if c.HasReferences != nil && q.HasReferences() != *c.HasReferences {
		return false
	}
	if c.IsActive != nil && q.IsActive != *c.IsActive {
		return false
	}

	return true
}

func containsDifficulty(set []models.DifficultyLevel, v models.DifficultyLevel) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsType(set []models.QuestionType, v models.QuestionType) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// intersects reports whether the two string sets share at least one element.
func intersects(have []string, want []string) bool {
	if len(have) == 0 {
		return false
	}
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

package query

import (
	"sort"
	"strings"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// Sort orders questions by the given key and direction. The sort is stable:
// questions comparing equal keep their relative input order regardless of
// direction. The input slice is not modified. An invalid key leaves the
// input order untouched; callers are expected to validate keys at the edge.
func Sort(questions []*models.Question, key SortKey, dir SortDirection) []*models.Question {
	out := make([]*models.Question, len(questions))
	copy(out, questions)

	cmp := comparator(key)
	if cmp == nil {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if dir == SortDesc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// comparator returns a three-way compare for the key, or nil for an
// unsupported key.
func comparator(key SortKey) func(a, b *models.Question) int {
	switch key {
	case SortByCreatedAt:
		return func(a, b *models.Question) int {
			return compareInt64(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
		}
	case SortByUpdatedAt:
		return func(a, b *models.Question) int {
			return compareInt64(a.UpdatedAt.UnixNano(), b.UpdatedAt.UnixNano())
		}
	case SortByDifficulty:
		return func(a, b *models.Question) int {
			return compareInt(models.DifficultyRank[a.Difficulty], models.DifficultyRank[b.Difficulty])
		}
	case SortByPoints:
		return func(a, b *models.Question) int {
			return compareInt(a.Points, b.Points)
		}
	case SortByHumanID:
		return func(a, b *models.Question) int {
			return strings.Compare(a.HumanID, b.HumanID)
		}
	case SortByType:
		return func(a, b *models.Question) int {
			return strings.Compare(string(a.Type), string(b.Type))
		}
	case SortByTagsCount:
		return func(a, b *models.Question) int {
			return compareInt(a.TagsCount(), b.TagsCount())
		}
	}
	return nil
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

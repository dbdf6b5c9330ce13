package query

import (
	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// Paginate slices the 1-indexed page window out of questions and computes
// pagination metadata. A page past the end returns an empty slice, not an
// error. An empty collection yields Pages = 0.
func Paginate(questions []*models.Question, page, limit int) ([]*models.Question, PaginationInfo) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}

	total := len(questions)
	pages := (total + limit - 1) / limit

	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	slice := make([]*models.Question, end-start)
	copy(slice, questions[start:end])

	info := PaginationInfo{
		Page:    page,
		Pages:   pages,
		Total:   int64(total),
		Limit:   limit,
		HasNext: (page-1)*limit+limit < total,
		HasPrev: page > 1,
	}
	return slice, info
}

// Run composes the four stages: filter, search, sort, paginate.
func Run(questions []*models.Question, sq SearchQuery) Result {
	filtered := Filter(questions, sq.Filters)
	searched := Search(filtered, sq.Query)
	sorted := Sort(searched, sq.SortBy, sq.SortOrder)
	page, info := Paginate(sorted, sq.Page, sq.Limit)
	return Result{Questions: page, Pagination: info}
}

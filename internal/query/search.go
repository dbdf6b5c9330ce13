package query

import (
	"strings"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// Search reduces questions to those whose searchable text contains every
// whitespace-separated term of the query as a substring, case-insensitively.
// An empty or blank query returns the input unchanged. No relevance ranking:
// input order is preserved.
func Search(questions []*models.Question, q string) []*models.Question {
	terms := strings.Fields(strings.ToLower(q))
	if len(terms) == 0 {
		return questions
	}

	out := make([]*models.Question, 0, len(questions))
	for _, question := range questions {
		haystack := searchableText(question)
		if containsAll(haystack, terms) {
			out = append(out, question)
		}
	}
	return out
}

func containsAll(haystack string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// searchableText concatenates every textual field of the question into one
// lowercase string: body and option texts are HTML-stripped first.
func searchableText(q *models.Question) string {
	var b strings.Builder
	b.Grow(len(q.Text) + 64)

	b.WriteString(StripHTML(q.Text))
	b.WriteByte(' ')
	if q.Explanation != nil {
		b.WriteString(*q.Explanation)
		b.WriteByte(' ')
	}
	if q.References != nil {
		b.WriteString(*q.References)
		b.WriteByte(' ')
	}
	b.WriteString(q.HumanID)
	b.WriteByte(' ')

	for _, t := range q.Tags {
		b.WriteString(t)
		b.WriteByte(' ')
	}
	for _, t := range q.SourceTags {
		b.WriteString(t)
		b.WriteByte(' ')
	}
	for _, t := range q.ExamTags {
		b.WriteString(t)
		b.WriteByte(' ')
	}

	if q.Assertion != nil {
		b.WriteString(*q.Assertion)
		b.WriteByte(' ')
	}
	if q.Reasoning != nil {
		b.WriteString(*q.Reasoning)
		b.WriteByte(' ')
	}

	for _, opt := range q.Options {
		b.WriteString(StripHTML(opt.Text))
		b.WriteByte(' ')
	}

	return strings.ToLower(b.String())
}

// StripHTML removes tags from rich-text content, leaving plain text for
// substring matching. Unclosed tags swallow the remainder of the string,
// which is acceptable for search purposes.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

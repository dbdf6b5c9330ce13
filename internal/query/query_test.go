package query

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }
func uintPtr(u uint) *uint    { return &u }

func makeQuestion(id uint, mutate func(*models.Question)) *models.Question {
	q := &models.Question{
		ID:         id,
		HumanID:    fmt.Sprintf("QB-%06d", id),
		Type:       models.SingleChoice,
		Difficulty: models.DifficultyMedium,
		Text:       fmt.Sprintf("Question %d", id),
		Points:     1,
		IsActive:   true,
		CreatedBy:  "teacher-1",
		CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
		UpdatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
		Options: datatypes.NewJSONSlice([]models.Option{
			{Text: "Option A", IsCorrect: true, Order: 0},
			{Text: "Option B", Order: 1},
		}),
	}
	if mutate != nil {
		mutate(q)
	}
	return q
}

func ids(questions []*models.Question) []uint {
	out := make([]uint, len(questions))
	for i, q := range questions {
		out[i] = q.ID
	}
	return out
}

func sameOrder(a, b []*models.Question) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// subset reports whether every element of a appears in b.
func subset(a, b []*models.Question) bool {
	seen := make(map[uint]bool, len(b))
	for _, q := range b {
		seen[q.ID] = true
	}
	for _, q := range a {
		if !seen[q.ID] {
			return false
		}
	}
	return true
}

func TestFilter(t *testing.T) {
	questions := []*models.Question{
		makeQuestion(1, func(q *models.Question) { q.Difficulty = models.DifficultyEasy }),
		makeQuestion(2, func(q *models.Question) { q.Difficulty = models.DifficultyEasy }),
		makeQuestion(3, func(q *models.Question) { q.Difficulty = models.DifficultyEasy }),
		makeQuestion(4, func(q *models.Question) { q.Difficulty = models.DifficultyEasy }),
		makeQuestion(5, nil),
		makeQuestion(6, nil),
		makeQuestion(7, nil),
		makeQuestion(8, func(q *models.Question) { q.Difficulty = models.DifficultyHard }),
		makeQuestion(9, func(q *models.Question) { q.Difficulty = models.DifficultyHard }),
		makeQuestion(10, func(q *models.Question) { q.Difficulty = models.DifficultyHard }),
	}

	t.Run("identity on empty criteria", func(t *testing.T) {
		got := Filter(questions, QuestionFilters{})
		if !sameOrder(got, questions) {
			t.Errorf("empty criteria should return input unchanged, got %v", ids(got))
		}
	})

	t.Run("difficulty membership", func(t *testing.T) {
		got := Filter(questions, QuestionFilters{
			Difficulty: []models.DifficultyLevel{models.DifficultyEasy, models.DifficultyHard},
		})
		if len(got) != 7 {
			t.Fatalf("expected 7 questions, got %d", len(got))
		}
		for _, q := range got {
			if q.Difficulty != models.DifficultyEasy && q.Difficulty != models.DifficultyHard {
				t.Errorf("question %d has difficulty %s", q.ID, q.Difficulty)
			}
		}
	})

	t.Run("AND-combined criteria are monotone", func(t *testing.T) {
		a := QuestionFilters{Difficulty: []models.DifficultyLevel{models.DifficultyEasy}}
		b := QuestionFilters{CreatedBy: strPtr("teacher-1")}
		both := QuestionFilters{
			Difficulty: []models.DifficultyLevel{models.DifficultyEasy},
			CreatedBy:  strPtr("teacher-1"),
		}

		combined := Filter(questions, both)
		if !subset(combined, Filter(questions, a)) {
			t.Error("combined result not a subset of first criterion's result")
		}
		if !subset(combined, Filter(questions, b)) {
			t.Error("combined result not a subset of second criterion's result")
		}
	})

	t.Run("tag family intersection", func(t *testing.T) {
		tagged := []*models.Question{
			makeQuestion(1, func(q *models.Question) {
				q.Tags = datatypes.NewJSONSlice([]string{"algebra", "linear"})
			}),
			makeQuestion(2, func(q *models.Question) {
				q.Tags = datatypes.NewJSONSlice([]string{"geometry"})
			}),
			makeQuestion(3, func(q *models.Question) {
				q.SourceTags = datatypes.NewJSONSlice([]string{"ncert"})
			}),
		}

		got := Filter(tagged, QuestionFilters{Tags: []string{"algebra", "trig"}})
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("expected only question 1, got %v", ids(got))
		}

		// A tags criterion must not be satisfied by source tags.
		got = Filter(tagged, QuestionFilters{Tags: []string{"ncert"}})
		if len(got) != 0 {
			t.Errorf("tags criterion matched a source tag: %v", ids(got))
		}

		got = Filter(tagged, QuestionFilters{SourceTags: []string{"ncert"}})
		if len(got) != 1 || got[0].ID != 3 {
			t.Errorf("expected only question 3, got %v", ids(got))
		}
	})

	t.Run("hierarchy and creator equality", func(t *testing.T) {
		qs := []*models.Question{
			makeQuestion(1, func(q *models.Question) { q.HierarchyItemID = uintPtr(7) }),
			makeQuestion(2, func(q *models.Question) { q.HierarchyItemID = uintPtr(8) }),
			makeQuestion(3, nil),
		}

		got := Filter(qs, QuestionFilters{HierarchyItemID: uintPtr(7)})
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("expected question 1, got %v", ids(got))
		}

		got = Filter(qs, QuestionFilters{CreatedBy: strPtr("nobody")})
		if len(got) != 0 {
			t.Errorf("expected no matches, got %v", ids(got))
		}
	})

	t.Run("date range inclusive bounds", func(t *testing.T) {
		from := questions[2].CreatedAt
		to := questions[5].CreatedAt
		got := Filter(questions, QuestionFilters{DateFrom: &from, DateTo: &to})
		if len(got) != 4 {
			t.Errorf("expected 4 questions in [3,6], got %v", ids(got))
		}
	})

	t.Run("points range", func(t *testing.T) {
		qs := []*models.Question{
			makeQuestion(1, func(q *models.Question) { q.Points = 1 }),
			makeQuestion(2, func(q *models.Question) { q.Points = 3 }),
			makeQuestion(3, func(q *models.Question) { q.Points = 5 }),
		}
		got := Filter(qs, QuestionFilters{PointsMin: intPtr(3), PointsMax: intPtr(5)})
		if len(got) != 2 {
			t.Errorf("expected 2 questions, got %v", ids(got))
		}
	})

	t.Run("time limit range excludes untimed questions", func(t *testing.T) {
		qs := []*models.Question{
			makeQuestion(1, func(q *models.Question) { q.TimeLimit = intPtr(60) }),
			makeQuestion(2, func(q *models.Question) { q.TimeLimit = intPtr(300) }),
			makeQuestion(3, nil), // untimed
		}
		got := Filter(qs, QuestionFilters{TimeLimitMin: intPtr(30)})
		if len(got) != 2 {
			t.Fatalf("expected 2 timed questions, got %v", ids(got))
		}
		for _, q := range got {
			if q.TimeLimit == nil {
				t.Errorf("untimed question %d matched a time-limit range", q.ID)
			}
		}
	})

	t.Run("boolean flags compare exactly", func(t *testing.T) {
		qs := []*models.Question{
			makeQuestion(1, func(q *models.Question) { q.Explanation = strPtr("because") }),
			makeQuestion(2, nil),
			makeQuestion(3, func(q *models.Question) { q.IsActive = false }),
		}

		got := Filter(qs, QuestionFilters{HasExplanation: boolPtr(true)})
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("expected question 1, got %v", ids(got))
		}

		got = Filter(qs, QuestionFilters{HasExplanation: boolPtr(false)})
		if len(got) != 2 {
			t.Errorf("expected questions without explanation, got %v", ids(got))
		}

		got = Filter(qs, QuestionFilters{IsActive: boolPtr(false)})
		if len(got) != 1 || got[0].ID != 3 {
			t.Errorf("expected question 3, got %v", ids(got))
		}
	})

	t.Run("preserves input order", func(t *testing.T) {
		got := Filter(questions, QuestionFilters{CreatedBy: strPtr("teacher-1")})
		if !sameOrder(got, questions) {
			t.Errorf("filter reordered matches: %v", ids(got))
		}
	})
}

func TestSearch(t *testing.T) {
	questions := []*models.Question{
		makeQuestion(1, func(q *models.Question) {
			q.Text = "<p>What is the boiling point of water?</p>"
			q.Options = datatypes.NewJSONSlice([]models.Option{
				{Text: "<b>100°C</b>", IsCorrect: true},
				{Text: "90°C"},
			})
		}),
		makeQuestion(2, func(q *models.Question) {
			q.Text = "Define the alpha particle"
			q.Explanation = strPtr("Helium nucleus emitted in radioactive decay")
		}),
		makeQuestion(3, func(q *models.Question) {
			q.Text = "Photosynthesis overview"
			q.Tags = datatypes.NewJSONSlice([]string{"biology", "alpha-topic"})
		}),
	}

	t.Run("empty query is identity", func(t *testing.T) {
		if got := Search(questions, ""); !sameOrder(got, questions) {
			t.Error("empty query should return input unchanged")
		}
		if got := Search(questions, "   "); !sameOrder(got, questions) {
			t.Error("blank query should return input unchanged")
		}
	})

	t.Run("multi-term AND semantics", func(t *testing.T) {
		got := Search(questions, "boiling water")
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("expected question 1, got %v", ids(got))
		}
		if got := Search(questions, "freezing"); len(got) != 0 {
			t.Errorf("expected no matches for 'freezing', got %v", ids(got))
		}

		both := Search(questions, "alpha decay")
		single := Search(questions, "alpha")
		if !subset(both, single) {
			t.Error("multi-term result must be a subset of each single-term result")
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		upper := Search(questions, "Alpha")
		lower := Search(questions, "alpha")
		if !sameOrder(upper, lower) {
			t.Errorf("case changed the result: %v vs %v", ids(upper), ids(lower))
		}
	})

	t.Run("matches option text with HTML stripped", func(t *testing.T) {
		got := Search(questions, "100°c")
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("expected question 1 via option text, got %v", ids(got))
		}
		// Tag names must never leak markup into the haystack.
		if got := Search(questions, "<b>"); len(got) != 0 {
			t.Errorf("markup should be stripped, got %v", ids(got))
		}
	})

	t.Run("matches human id and tags", func(t *testing.T) {
		got := Search(questions, "qb-000002")
		if len(got) != 1 || got[0].ID != 2 {
			t.Errorf("expected question 2 via human id, got %v", ids(got))
		}
		got = Search(questions, "biology")
		if len(got) != 1 || got[0].ID != 3 {
			t.Errorf("expected question 3 via tag, got %v", ids(got))
		}
	})
}

func TestStripHTML(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"<p>hello</p>", "hello"},
		{"a <b>bold</b> move", "a bold move"},
		{"<img src='x'/>after", "after"},
		{"", ""},
	}
	for _, c := range cases {
		if got := StripHTML(c.in); got != c.want {
			t.Errorf("StripHTML(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSort(t *testing.T) {
	t.Run("points ascending", func(t *testing.T) {
		points := []int{1, 3, 2, 5, 4}
		qs := make([]*models.Question, len(points))
		for i, p := range points {
			p := p
			qs[i] = makeQuestion(uint(i+1), func(q *models.Question) { q.Points = p })
		}

		sorted := Sort(qs, SortByPoints, SortAsc)
		want := []int{1, 2, 3, 4, 5}
		for i, q := range sorted {
			if q.Points != want[i] {
				t.Fatalf("position %d: points %d, want %d", i, q.Points, want[i])
			}
		}
	})

	t.Run("difficulty uses rank not lexicographic", func(t *testing.T) {
		qs := []*models.Question{
			makeQuestion(1, func(q *models.Question) { q.Difficulty = models.DifficultyHard }),
			makeQuestion(2, func(q *models.Question) { q.Difficulty = models.DifficultyEasy }),
			makeQuestion(3, func(q *models.Question) { q.Difficulty = models.DifficultyMedium }),
		}
		sorted := Sort(qs, SortByDifficulty, SortAsc)
		want := []models.DifficultyLevel{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}
		for i, q := range sorted {
			if q.Difficulty != want[i] {
				t.Fatalf("position %d: %s, want %s", i, q.Difficulty, want[i])
			}
		}
	})

	t.Run("stable on equal keys", func(t *testing.T) {
		qs := []*models.Question{
			makeQuestion(1, func(q *models.Question) { q.Points = 5 }),
			makeQuestion(2, func(q *models.Question) { q.Points = 5 }),
			makeQuestion(3, func(q *models.Question) { q.Points = 5 }),
			makeQuestion(4, func(q *models.Question) { q.Points = 2 }),
		}

		asc := Sort(qs, SortByPoints, SortAsc)
		if asc[1].ID != 1 || asc[2].ID != 2 || asc[3].ID != 3 {
			t.Errorf("ascending sort broke tie order: %v", ids(asc))
		}

		desc := Sort(qs, SortByPoints, SortDesc)
		if desc[0].ID != 1 || desc[1].ID != 2 || desc[2].ID != 3 {
			t.Errorf("descending sort broke tie order: %v", ids(desc))
		}
	})

	t.Run("descending reverses ascending for distinct keys", func(t *testing.T) {
		qs := []*models.Question{
			makeQuestion(1, func(q *models.Question) { q.Points = 3 }),
			makeQuestion(2, func(q *models.Question) { q.Points = 1 }),
			makeQuestion(3, func(q *models.Question) { q.Points = 2 }),
		}
		asc := Sort(qs, SortByPoints, SortAsc)
		desc := Sort(qs, SortByPoints, SortDesc)
		for i := range asc {
			if asc[i].ID != desc[len(desc)-1-i].ID {
				t.Fatalf("desc is not the reverse of asc: %v vs %v", ids(asc), ids(desc))
			}
		}
	})

	t.Run("tags count sums all families", func(t *testing.T) {
		qs := []*models.Question{
			makeQuestion(1, func(q *models.Question) {
				q.Tags = datatypes.NewJSONSlice([]string{"a", "b"})
				q.ExamTags = datatypes.NewJSONSlice([]string{"c"})
			}),
			makeQuestion(2, nil),
			makeQuestion(3, func(q *models.Question) {
				q.SourceTags = datatypes.NewJSONSlice([]string{"d"})
			}),
		}
		sorted := Sort(qs, SortByTagsCount, SortDesc)
		if sorted[0].ID != 1 || sorted[1].ID != 3 || sorted[2].ID != 2 {
			t.Errorf("unexpected tags_count order: %v", ids(sorted))
		}
	})

	t.Run("does not mutate input", func(t *testing.T) {
		qs := []*models.Question{
			makeQuestion(2, nil),
			makeQuestion(1, nil),
		}
		_ = Sort(qs, SortByHumanID, SortAsc)
		if qs[0].ID != 2 || qs[1].ID != 1 {
			t.Error("Sort mutated its input slice")
		}
	})
}

func TestPaginate(t *testing.T) {
	questions := make([]*models.Question, 10)
	for i := range questions {
		questions[i] = makeQuestion(uint(i+1), nil)
	}

	t.Run("first page", func(t *testing.T) {
		page, info := Paginate(questions, 1, 3)
		if len(page) != 3 || page[0].ID != 1 {
			t.Errorf("unexpected page: %v", ids(page))
		}
		if info.Pages != 4 || info.Total != 10 || !info.HasNext || info.HasPrev {
			t.Errorf("unexpected info: %+v", info)
		}
	})

	t.Run("last partial page", func(t *testing.T) {
		page, info := Paginate(questions, 4, 3)
		if len(page) != 1 || page[0].ID != 10 {
			t.Errorf("unexpected page: %v", ids(page))
		}
		if info.HasNext || !info.HasPrev {
			t.Errorf("unexpected info: %+v", info)
		}
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		page, info := Paginate(questions, 5, 3)
		if len(page) != 0 {
			t.Errorf("expected empty page, got %v", ids(page))
		}
		if info.HasNext {
			t.Error("HasNext should be false past the end")
		}
	})

	t.Run("coverage: concatenated pages rebuild the collection", func(t *testing.T) {
		limit := 4
		var rebuilt []*models.Question
		_, info := Paginate(questions, 1, limit)
		for p := 1; p <= info.Pages; p++ {
			page, _ := Paginate(questions, p, limit)
			rebuilt = append(rebuilt, page...)
		}
		if !sameOrder(rebuilt, questions) {
			t.Errorf("pages do not rebuild collection: %v", ids(rebuilt))
		}
	})

	t.Run("empty collection", func(t *testing.T) {
		page, info := Paginate(nil, 1, 20)
		if len(page) != 0 || info.Pages != 0 || info.Total != 0 || info.HasNext || info.HasPrev {
			t.Errorf("unexpected empty-collection result: %+v", info)
		}
	})
}

func TestRun(t *testing.T) {
	points := []int{1, 3, 2, 5, 4}
	questions := make([]*models.Question, len(points))
	for i, p := range points {
		p := p
		questions[i] = makeQuestion(uint(i+1), func(q *models.Question) { q.Points = p })
	}

	res := Run(questions, SearchQuery{
		SortBy:    SortByPoints,
		SortOrder: SortAsc,
		Page:      1,
		Limit:     2,
	})

	if len(res.Questions) != 2 || res.Questions[0].Points != 1 || res.Questions[1].Points != 2 {
		t.Fatalf("unexpected page contents: %v", ids(res.Questions))
	}
	if res.Pagination.Pages != 3 || !res.Pagination.HasNext || res.Pagination.HasPrev {
		t.Errorf("unexpected pagination: %+v", res.Pagination)
	}
}

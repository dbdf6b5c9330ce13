package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/question-bank-service/internal/events"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

func newImportExportServiceForTest(repo *fakeRepository) ImportExportService {
	return NewImportExportService(repo, nil, testLogger(), validator.New(), events.NewMockEventPublisher())
}

func seedExportQuestion(repo *fakeRepository) *models.Question {
	return repo.question.add(&models.Question{
		Type:       models.SingleChoice,
		Text:       `Which gas, also called "laughing gas", is N2O?`,
		Difficulty: models.DifficultyMedium,
		Points:     2,
		IsActive:   true,
		Tags:       datatypes.NewJSONSlice([]string{"chemistry", "gases"}),
		Options: datatypes.NewJSONSlice([]models.Option{
			{Text: "Nitrous oxide", IsCorrect: true, Order: 0},
			{Text: "Nitric oxide", Order: 1},
			{Text: "Nitrogen dioxide", Order: 2},
		}),
		CreatedBy: "teacher-1",
	})
}

func TestExportCSV(t *testing.T) {
	repo := newFakeRepository()
	seedExportQuestion(repo)
	svc := newImportExportServiceForTest(repo)

	result, err := svc.Export(context.Background(), &ExportRequest{Format: FormatCSV}, "teacher-1")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if result.Count != 1 {
		t.Errorf("Count = %d, want 1", result.Count)
	}
	if result.ContentType != "text/csv" {
		t.Errorf("ContentType = %q", result.ContentType)
	}

	lines := strings.Split(strings.TrimRight(string(result.Data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv has %d lines, want header plus one row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "human_id,type,text,") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	// Quotes in the stem must be doubled inside a quoted cell
	if !strings.Contains(lines[1], `"Which gas, also called ""laughing gas"", is N2O?"`) {
		t.Errorf("cell quoting wrong: %q", lines[1])
	}
	// Correct option carries the marker
	if !strings.Contains(lines[1], "*Nitrous oxide;Nitric oxide;Nitrogen dioxide") {
		t.Errorf("options cell wrong: %q", lines[1])
	}
}

func TestExportJSONSelection(t *testing.T) {
	repo := newFakeRepository()
	q1 := seedExportQuestion(repo)
	repo.question.add(&models.Question{
		Type: models.TrueFalse, Text: "Water boils at 100C at sea level.",
		Difficulty: models.DifficultyEasy, Points: 1, IsActive: true,
		Options: datatypes.NewJSONSlice([]models.Option{
			{Text: "True", IsCorrect: true, Order: 0},
			{Text: "False", Order: 1},
		}),
		CreatedBy: "teacher-1",
	})
	svc := newImportExportServiceForTest(repo)

	// Explicit selection wins over filters
	result, err := svc.Export(context.Background(), &ExportRequest{Format: FormatJSON, IDs: []uint{q1.ID}}, "teacher-1")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if result.Count != 1 {
		t.Errorf("Count = %d, want 1", result.Count)
	}

	var exported []*models.Question
	if err := json.Unmarshal(result.Data, &exported); err != nil {
		t.Fatalf("export payload is not valid JSON: %v", err)
	}
	if len(exported) != 1 || exported[0].ID != q1.ID {
		t.Errorf("exported wrong selection: %+v", exported)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := newImportExportServiceForTest(newFakeRepository())

	_, err := svc.Export(context.Background(), &ExportRequest{Format: "docx"}, "teacher-1")
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestImportCSV(t *testing.T) {
	repo := newFakeRepository()
	svc := newImportExportServiceForTest(repo)

	csv := strings.Join([]string{
		"text,type,difficulty,points,options,tags",
		`What is 2+2?,single_choice,easy,1,*4;3;5,math`,
		`,single_choice,easy,1,*a;b,`,
		`"Pick primes, please",multiple_choice,,,"*2;*3;4",math;primes`,
	}, "\n")

	result, err := svc.Import(context.Background(), &ImportRequest{Format: ImportCSV, Data: []byte(csv)}, "teacher-1")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if result.Imported != 2 {
		t.Errorf("Imported = %d, want 2", result.Imported)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if len(result.Errors) != 1 || result.Errors[0].Row != 2 {
		t.Errorf("Errors = %v, want one error on row 2", result.Errors)
	}

	all, _ := repo.question.ListAll(context.Background(), nil)
	if len(all) != 2 {
		t.Fatalf("stored %d questions, want 2", len(all))
	}

	// Row defaults: missing difficulty and points fall back
	var primes *models.Question
	for _, q := range all {
		if strings.Contains(q.Text, "primes") {
			primes = q
		}
	}
	if primes == nil {
		t.Fatal("quoted row with embedded comma not imported")
	}
	if primes.Difficulty != models.DifficultyMedium {
		t.Errorf("default difficulty = %q, want medium", primes.Difficulty)
	}
	if primes.Points != 1 {
		t.Errorf("default points = %d, want 1", primes.Points)
	}
	if primes.CorrectOptionCount() != 2 {
		t.Errorf("correct options = %d, want 2", primes.CorrectOptionCount())
	}
	if primes.CreatedBy != "teacher-1" {
		t.Errorf("CreatedBy = %q", primes.CreatedBy)
	}
}

func TestImportCSVErrorRowNumbers(t *testing.T) {
	repo := newFakeRepository()
	svc := newImportExportServiceForTest(repo)

	// Row 1 fails at parse time (no text), row 2 survives parsing but fails
	// validation (two correct options on a single_choice question). Each
	// error must pin its own source row.
	csv := strings.Join([]string{
		"text,type,options",
		`,single_choice,*a;b`,
		`Broken row?,single_choice,*a;*b`,
		`Good row?,single_choice,*a;b`,
	}, "\n")

	result, err := svc.Import(context.Background(), &ImportRequest{Format: ImportCSV, Data: []byte(csv)}, "teacher-1")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if result.Imported != 1 || result.Skipped != 2 {
		t.Errorf("Imported = %d, Skipped = %d, want 1 and 2", result.Imported, result.Skipped)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("Errors = %v, want 2", result.Errors)
	}

	rows := map[int]bool{}
	for _, e := range result.Errors {
		rows[e.Row] = true
	}
	if !rows[1] || !rows[2] {
		t.Errorf("error rows = %v, want rows 1 and 2", result.Errors)
	}
}

func TestImportCSVRequestDefaults(t *testing.T) {
	repo := newFakeRepository()
	svc := newImportExportServiceForTest(repo)

	csv := "text,options\nCapital of France?,*Paris;London\n"
	req := &ImportRequest{
		Format:            ImportCSV,
		Data:              []byte(csv),
		DefaultDifficulty: models.DifficultyHard,
		DefaultPoints:     5,
	}

	result, err := svc.Import(context.Background(), req, "teacher-1")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("Imported = %d, want 1: %v", result.Imported, result.Errors)
	}

	all, _ := repo.question.ListAll(context.Background(), nil)
	q := all[0]
	if q.Difficulty != models.DifficultyHard {
		t.Errorf("Difficulty = %q, want hard", q.Difficulty)
	}
	if q.Points != 5 {
		t.Errorf("Points = %d, want 5", q.Points)
	}
	if q.Type != models.SingleChoice {
		t.Errorf("Type = %q, want default single_choice", q.Type)
	}
}

func TestImportCSVJSONOptionsCell(t *testing.T) {
	repo := newFakeRepository()
	svc := newImportExportServiceForTest(repo)

	csv := "text,options\n" +
		`What is H2O?,"[{""text"":""Water"",""is_correct"":true},{""text"":""Salt""}]"` + "\n"

	result, err := svc.Import(context.Background(), &ImportRequest{Format: ImportCSV, Data: []byte(csv)}, "teacher-1")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("Imported = %d, want 1: %v", result.Imported, result.Errors)
	}

	all, _ := repo.question.ListAll(context.Background(), nil)
	q := all[0]
	if len(q.Options) != 2 || !q.Options[0].IsCorrect || q.Options[0].Text != "Water" {
		t.Errorf("JSON options cell parsed wrong: %+v", q.Options)
	}
}

func TestImportJSON(t *testing.T) {
	repo := newFakeRepository()
	svc := newImportExportServiceForTest(repo)

	payload := `[
		{
			"type": "single_choice",
			"text": "What is H2O?",
			"difficulty": "easy",
			"points": 1,
			"options": [
				{"text": "Water", "is_correct": true},
				{"text": "Salt"}
			]
		},
		{
			"type": "single_choice",
			"text": "Bad row with one option",
			"difficulty": "easy",
			"points": 1,
			"options": [{"text": "only", "is_correct": true}]
		}
	]`

	result, err := svc.Import(context.Background(), &ImportRequest{Format: ImportJSON, Data: []byte(payload)}, "teacher-1")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("Imported = %d, want 1", result.Imported)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	repo := newFakeRepository()
	seedExportQuestion(repo)
	svc := newImportExportServiceForTest(repo)

	exported, err := svc.Export(context.Background(), &ExportRequest{Format: FormatCSV}, "teacher-1")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	target := newFakeRepository()
	importSvc := newImportExportServiceForTest(target)

	result, err := importSvc.Import(context.Background(), &ImportRequest{Format: ImportCSV, Data: exported.Data}, "teacher-2")
	if err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("Imported = %d, want 1: %v", result.Imported, result.Errors)
	}

	all, _ := target.question.ListAll(context.Background(), nil)
	got := all[0]
	if got.Text != `Which gas, also called "laughing gas", is N2O?` {
		t.Errorf("text lost in round trip: %q", got.Text)
	}
	if got.CorrectOptionCount() != 1 || !got.Options[0].IsCorrect {
		t.Errorf("correct marker lost in round trip: %+v", got.Options)
	}
	if len(got.Tags) != 2 {
		t.Errorf("tags lost in round trip: %v", got.Tags)
	}
}

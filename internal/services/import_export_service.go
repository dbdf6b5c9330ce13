package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/events"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/query"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

type importExportService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewImportExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ImportExportService {
	return &importExportService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// exportColumns is the column order shared by CSV and XLSX exports.
var exportColumns = []string{
	"human_id", "type", "text", "difficulty", "points", "time_limit",
	"is_active", "tags", "source_tags", "exam_tags",
	"options", "explanation", "references",
}

// ===== EXPORT =====

func (s *importExportService) Export(ctx context.Context, req *ExportRequest, userID string) (*ExportResult, error) {
	if !req.Format.Valid() {
		return nil, ErrInvalidFormat
	}

	s.logger.Info("Exporting questions", "user_id", userID, "format", req.Format)

	questions, err := s.selectQuestions(ctx, req)
	if err != nil {
		return nil, err
	}

	var result *ExportResult
	switch req.Format {
	case FormatJSON:
		result, err = s.exportJSON(questions)
	case FormatCSV:
		result, err = s.exportCSV(questions)
	case FormatXLSX:
		result, err = s.exportXLSX(questions)
	case FormatPDF:
		result, err = s.exportPDF(questions)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Export completed", "format", req.Format, "count", result.Count)
	return result, nil
}

// selectQuestions resolves the export scope: an explicit id selection wins,
// otherwise the search/filter pipeline runs over the whole collection.
func (s *importExportService) selectQuestions(ctx context.Context, req *ExportRequest) ([]*models.Question, error) {
	if len(req.IDs) > 0 {
		questions, err := s.repo.Question().GetByIDs(ctx, nil, req.IDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load selected questions: %w", err)
		}
		return questions, nil
	}

	all, err := s.repo.Question().ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	filtered := query.Filter(all, req.Filters)
	return query.Search(filtered, req.Query), nil
}

func (s *importExportService) exportJSON(questions []*models.Question) (*ExportResult, error) {
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal questions: %w", err)
	}

	return &ExportResult{
		FileName:    exportFileName("json"),
		ContentType: "application/json",
		Data:        data,
		Count:       len(questions),
	}, nil
}

// exportCSV writes a spreadsheet-compatible CSV. Cells containing commas,
// quotes or newlines are quoted, with embedded quotes doubled.
func (s *importExportService) exportCSV(questions []*models.Question) (*ExportResult, error) {
	var buf bytes.Buffer

	buf.WriteString(strings.Join(exportColumns, ","))
	buf.WriteByte('\n')

	for _, q := range questions {
		row := questionToRow(q)
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = csvEscape(cell)
		}
		buf.WriteString(strings.Join(cells, ","))
		buf.WriteByte('\n')
	}

	return &ExportResult{
		FileName:    exportFileName("csv"),
		ContentType: "text/csv",
		Data:        buf.Bytes(),
		Count:       len(questions),
	}, nil
}

func csvEscape(cell string) string {
	if strings.ContainsAny(cell, ",\"\n\r") {
		return "\"" + strings.ReplaceAll(cell, "\"", "\"\"") + "\""
	}
	return cell
}

func (s *importExportService) exportXLSX(questions []*models.Question) (*ExportResult, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Questions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
	}

	for rowIdx, q := range questions {
		row := questionToRow(q)
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return &ExportResult{
		FileName:    exportFileName("xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
		Count:       len(questions),
	}, nil
}

// exportPDF renders a printable question sheet: stem, options with correct
// answers marked, and the explanation when present.
func (s *importExportService) exportPDF(questions []*models.Question) (*ExportResult, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Question Bank Export", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for i, q := range questions {
		pdf.SetFont("Helvetica", "B", 11)
		header := fmt.Sprintf("%d. [%s] %s (%d pts, %s)", i+1, q.HumanID, q.Type, q.Points, q.Difficulty)
		pdf.MultiCell(0, 6, header, "", "L", false)

		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, query.StripHTML(q.Text), "", "L", false)

		if q.Assertion != nil && *q.Assertion != "" {
			pdf.MultiCell(0, 5, "Assertion: "+query.StripHTML(*q.Assertion), "", "L", false)
		}
		if q.Reasoning != nil && *q.Reasoning != "" {
			pdf.MultiCell(0, 5, "Reasoning: "+query.StripHTML(*q.Reasoning), "", "L", false)
		}

		for j, opt := range q.Options {
			marker := " "
			if opt.IsCorrect {
				marker = "*"
			}
			line := fmt.Sprintf("  %s %c) %s", marker, 'A'+j, query.StripHTML(opt.Text))
			pdf.MultiCell(0, 5, line, "", "L", false)
		}

		if q.HasExplanation() {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 5, "Explanation: "+query.StripHTML(*q.Explanation), "", "L", false)
		}

		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	return &ExportResult{
		FileName:    exportFileName("pdf"),
		ContentType: "application/pdf",
		Data:        buf.Bytes(),
		Count:       len(questions),
	}, nil
}

// questionToRow flattens a question into export cells. Options are joined
// with ";" and correct options carry a "*" prefix; tag families join with ";".
func questionToRow(q *models.Question) []string {
	options := make([]string, len(q.Options))
	for i, opt := range q.Options {
		text := query.StripHTML(opt.Text)
		if opt.IsCorrect {
			options[i] = "*" + text
		} else {
			options[i] = text
		}
	}

	timeLimit := ""
	if q.TimeLimit != nil {
		timeLimit = strconv.Itoa(*q.TimeLimit)
	}
	explanation := ""
	if q.Explanation != nil {
		explanation = *q.Explanation
	}
	references := ""
	if q.References != nil {
		references = *q.References
	}

	return []string{
		q.HumanID,
		string(q.Type),
		q.Text,
		string(q.Difficulty),
		strconv.Itoa(q.Points),
		timeLimit,
		strconv.FormatBool(q.IsActive),
		strings.Join(q.Tags, ";"),
		strings.Join(q.SourceTags, ";"),
		strings.Join(q.ExamTags, ";"),
		strings.Join(options, ";"),
		explanation,
		references,
	}
}

func exportFileName(ext string) string {
	return fmt.Sprintf("questions_%s.%s", time.Now().UTC().Format("20060102_150405"), ext)
}

// ===== IMPORT =====

// importRow pairs a parsed request with the data row it came from, so
// later validation failures report the source row rather than an index
// into the parse survivors.
type importRow struct {
	req       *CreateQuestionRequest
	sourceRow int
}

func (s *importExportService) Import(ctx context.Context, req *ImportRequest, userID string) (*ImportResult, error) {
	s.logger.Info("Importing questions", "user_id", userID, "format", req.Format, "bytes", len(req.Data))

	var rows []importRow
	var rowErrors []ImportRowError
	var err error

	switch req.Format {
	case ImportJSON:
		rows, rowErrors, err = s.parseJSONImport(req)
	case ImportCSV:
		rows, rowErrors, err = s.parseCSVImport(req)
	default:
		return nil, ErrInvalidFormat
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: rowErrors, Skipped: len(rowErrors)}

	// Each row validated and created independently; a bad row never aborts
	// the batch.
	var created []*models.Question
	for _, row := range rows {
		applyImportDefaults(row.req, req)

		if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(row.req); len(errs) > 0 {
			result.Errors = append(result.Errors, ImportRowError{Row: row.sourceRow, Message: errs.Error()})
			result.Skipped++
			continue
		}

		question := s.rowToQuestion(row.req, req, userID)
		created = append(created, question)
	}

	if len(created) > 0 {
		if err := s.repo.Question().CreateBatch(ctx, nil, created); err != nil {
			return nil, fmt.Errorf("failed to create imported questions: %w", err)
		}
		result.Imported = len(created)

		if req.HierarchyItemID != nil {
			if err := s.repo.Hierarchy().RecountQuestions(ctx, nil, *req.HierarchyItemID); err != nil {
				s.logger.Error("Failed to recount questions after import", "error", err, "hierarchy_item_id", *req.HierarchyItemID)
			}
		}
	}

	s.publishImportEvent(ctx, result, userID)

	s.logger.Info("Import completed", "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

func (s *importExportService) parseJSONImport(req *ImportRequest) ([]importRow, []ImportRowError, error) {
	var parsed []*CreateQuestionRequest
	if err := json.Unmarshal(req.Data, &parsed); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	rows := make([]importRow, len(parsed))
	for i, row := range parsed {
		rows[i] = importRow{req: row, sourceRow: i + 1}
	}
	return rows, nil, nil
}

// parseCSVImport reads the export column layout back in. Unknown columns are
// ignored; missing optional cells fall back to the request defaults.
func (s *importExportService) parseCSVImport(req *ImportRequest) ([]importRow, []ImportRowError, error) {
	records, err := parseCSV(string(req.Data))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid CSV payload: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("CSV payload has no data rows")
	}

	colIndex := make(map[string]int)
	for i, name := range records[0] {
		colIndex[strings.TrimSpace(strings.ToLower(name))] = i
	}

	cell := func(row []string, name string) string {
		idx, ok := colIndex[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rows []importRow
	var rowErrors []ImportRowError

	for i, record := range records[1:] {
		rowNum := i + 1

		text := cell(record, "text")
		if text == "" {
			rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Message: "text is required"})
			continue
		}

		qType := models.QuestionType(cell(record, "type"))
		if qType == "" {
			qType = models.SingleChoice
		}
		if !qType.Valid() {
			rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Message: fmt.Sprintf("unknown question type %q", cell(record, "type"))})
			continue
		}

		options, err := parseOptionsCell(cell(record, "options"))
		if err != nil {
			rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}

		row := &CreateQuestionRequest{
			Type:       qType,
			Text:       text,
			Options:    options,
			Tags:       splitList(cell(record, "tags")),
			SourceTags: splitList(cell(record, "source_tags")),
			ExamTags:   splitList(cell(record, "exam_tags")),
		}

		if diff := models.DifficultyLevel(cell(record, "difficulty")); diff != "" {
			row.Difficulty = diff
		}
		if pts := cell(record, "points"); pts != "" {
			if n, err := strconv.Atoi(pts); err == nil {
				row.Points = n
			}
		}
		if tl := cell(record, "time_limit"); tl != "" {
			if n, err := strconv.Atoi(tl); err == nil {
				row.TimeLimit = &n
			}
		}
		if exp := cell(record, "explanation"); exp != "" {
			row.Explanation = &exp
		}
		if ref := cell(record, "references"); ref != "" {
			row.References = &ref
		}

		rows = append(rows, importRow{req: row, sourceRow: rowNum})
	}

	return rows, rowErrors, nil
}

// parseOptionsCell reads the options cell. A JSON array passes through
// directly; otherwise the cell is the ";"-joined micro-format with a "*"
// prefix as the correct-answer marker.
func parseOptionsCell(cell string) ([]models.Option, error) {
	if cell == "" {
		return nil, fmt.Errorf("options are required")
	}

	if strings.HasPrefix(cell, "[") {
		var options []models.Option
		if err := json.Unmarshal([]byte(cell), &options); err != nil {
			return nil, fmt.Errorf("invalid options JSON: %w", err)
		}
		if len(options) < 2 {
			return nil, fmt.Errorf("at least two options are required")
		}
		return options, nil
	}

	parts := strings.Split(cell, ";")
	options := make([]models.Option, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		opt := models.Option{Order: i}
		if strings.HasPrefix(part, "*") {
			opt.IsCorrect = true
			part = strings.TrimSpace(strings.TrimPrefix(part, "*"))
		}
		opt.Text = part
		options = append(options, opt)
	}

	if len(options) < 2 {
		return nil, fmt.Errorf("at least two options are required")
	}
	return options, nil
}

func splitList(cell string) []string {
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseCSV implements the quoting rules used by exportCSV: quoted cells may
// contain commas and newlines, embedded quotes are doubled.
func parseCSV(data string) ([][]string, error) {
	var records [][]string
	var row []string
	var cell strings.Builder
	inQuotes := false

	flushCell := func() {
		row = append(row, cell.String())
		cell.Reset()
	}
	flushRow := func() {
		flushCell()
		records = append(records, row)
		row = nil
	}

	runes := []rune(data)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inQuotes:
			if c == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					cell.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				cell.WriteRune(c)
			}
		case c == '"':
			inQuotes = true
		case c == ',':
			flushCell()
		case c == '\r':
			// swallow, \n handles the row break
		case c == '\n':
			flushRow()
		default:
			cell.WriteRune(c)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted cell")
	}
	if cell.Len() > 0 || len(row) > 0 {
		flushRow()
	}

	return records, nil
}

// applyImportDefaults fills the request-level defaults into rows that omit
// difficulty or points, before validation runs.
func applyImportDefaults(row *CreateQuestionRequest, req *ImportRequest) {
	if row.Difficulty == "" {
		row.Difficulty = req.DefaultDifficulty
	}
	if row.Difficulty == "" {
		row.Difficulty = models.DifficultyMedium
	}
	if row.Points == 0 {
		row.Points = req.DefaultPoints
	}
	if row.Points == 0 {
		row.Points = 1
	}
}

func (s *importExportService) rowToQuestion(row *CreateQuestionRequest, req *ImportRequest, userID string) *models.Question {
	question := &models.Question{
		Type:            row.Type,
		Text:            row.Text,
		Difficulty:      row.Difficulty,
		Points:          row.Points,
		TimeLimit:       row.TimeLimit,
		IsActive:        true,
		Explanation:     row.Explanation,
		References:      row.References,
		Assertion:       row.Assertion,
		Reasoning:       row.Reasoning,
		HierarchyItemID: req.HierarchyItemID,
		CreatedBy:       userID,
	}
	question.Options = row.Options
	question.Tags = emptyIfNil(row.Tags)
	question.SourceTags = emptyIfNil(row.SourceTags)
	question.ExamTags = emptyIfNil(row.ExamTags)

	return question
}

func (s *importExportService) publishImportEvent(ctx context.Context, result *ImportResult, userID string) {
	event := events.NewEvent(events.TopicImportCompleted, map[string]interface{}{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"user_id":  userID,
	})

	if err := s.publisher.Publish(ctx, events.TopicImportCompleted, event); err != nil {
		s.logger.Error("Failed to publish import event", "error", err)
	}
}

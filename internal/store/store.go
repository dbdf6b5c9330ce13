// Package store holds the workbench session state: an in-memory snapshot of
// the question collection plus the current search/filter/sort/page input,
// with the visible page re-derived on every change.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/query"
	"github.com/SAP-F-2025/question-bank-service/internal/services"
)

// State is the store lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateError   State = "error"
)

// Store orchestrates the workbench view of the question collection. All
// reads are served from the in-memory snapshot; every mutation goes through
// the backing service and then reloads the snapshot. There is no optimistic
// local state: what the server returns is what the store holds.
type Store struct {
	questions services.QuestionService
	dashboard services.DashboardService
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	loadErr   error
	snapshot  []*models.Question
	current   query.SearchQuery
	derived   query.Result
	stats     *services.DashboardStats
}

// New creates a store in the idle state with the default query. Call Load
// before reading results.
func New(questions services.QuestionService, dashboard services.DashboardService, logger *slog.Logger) *Store {
	return &Store{
		questions: questions,
		dashboard: dashboard,
		logger:    logger,
		state:     StateIdle,
		current:   query.DefaultQuery(),
	}
}

// ===== LOADING =====

// Load fetches the collection wholesale and derives the first page. A fetch
// failure moves the store to the error state; the previous snapshot is kept
// so the workbench can keep rendering stale data.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	s.state = StateLoading

	questions, err := s.questions.ListAll(ctx)
	if err != nil {
		s.state = StateError
		s.loadErr = fmt.Errorf("failed to load questions: %w", err)
		s.logger.Error("Store load failed", "error", err)
		return s.loadErr
	}

	s.snapshot = questions
	s.state = StateIdle
	s.loadErr = nil
	s.deriveLocked()

	s.logger.Debug("Store loaded", "count", len(questions))
	return nil
}

// Refresh reloads the snapshot and the statistics concurrently. Either
// failure surfaces; the question reload error wins when both fail.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var wg sync.WaitGroup
	var statsErr error
	var stats *services.DashboardStats

	wg.Add(1)
	go func() {
		defer wg.Done()
		stats, statsErr = s.dashboard.GetStats(ctx)
	}()

	loadErr := s.loadLocked(ctx)

	wg.Wait()
	if statsErr == nil {
		s.stats = stats
	} else {
		s.logger.Error("Stats refresh failed", "error", statsErr)
	}

	if loadErr != nil {
		return loadErr
	}
	return statsErr
}

// ===== QUERY SETTERS =====

// SetFilters replaces the filter set and resets to the first page.
func (s *Store) SetFilters(filters query.QuestionFilters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Filters = filters
	s.current.Page = 1
	s.deriveLocked()
}

// SetQuery replaces the free-text query and resets to the first page.
func (s *Store) SetQuery(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Query = text
	s.current.Page = 1
	s.deriveLocked()
}

// SetSort replaces the sort key and direction. The page is kept; reordering
// does not change which page the user is on.
func (s *Store) SetSort(key query.SortKey, direction query.SortDirection) error {
	if !key.Valid() {
		return services.ErrInvalidSortKey
	}
	if !direction.Valid() {
		direction = query.SortDesc
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.SortBy = key
	s.current.SortOrder = direction
	s.deriveLocked()
	return nil
}

// SetPage moves the page window.
func (s *Store) SetPage(page, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Page = page
	if limit > 0 {
		s.current.Limit = limit
	}
	s.deriveLocked()
}

func (s *Store) deriveLocked() {
	s.derived = query.Run(s.snapshot, s.current)
}

// ===== READS =====

// Result returns the current derived page.
func (s *Store) Result() query.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.derived
}

// Query returns the current pipeline input.
func (s *Store) Query() query.SearchQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// State returns the lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the last load or mutation error, nil when healthy.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Stats returns the last statistics snapshot, nil before the first Refresh.
func (s *Store) Stats() *services.DashboardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ===== MUTATIONS =====

// Create creates a question through the service and reloads the snapshot.
func (s *Store) Create(ctx context.Context, req *services.CreateQuestionRequest, userID string) (*services.QuestionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.questions.Create(ctx, req, userID)
	if err != nil {
		s.loadErr = err
		return nil, err
	}

	if reloadErr := s.loadLocked(ctx); reloadErr != nil {
		return resp, reloadErr
	}
	return resp, nil
}

// Update updates a question through the service and reloads the snapshot.
func (s *Store) Update(ctx context.Context, id uint, req *services.UpdateQuestionRequest, userID string) (*services.QuestionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.questions.Update(ctx, id, req, userID)
	if err != nil {
		s.loadErr = err
		return nil, err
	}

	if reloadErr := s.loadLocked(ctx); reloadErr != nil {
		return resp, reloadErr
	}
	return resp, nil
}

// Delete deletes a question through the service and reloads the snapshot.
func (s *Store) Delete(ctx context.Context, id uint, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.questions.Delete(ctx, id, userID); err != nil {
		s.loadErr = err
		return err
	}

	return s.loadLocked(ctx)
}

// BulkDelete deletes a batch and reloads the snapshot.
func (s *Store) BulkDelete(ctx context.Context, req *services.BulkDeleteRequest, userID string) (*services.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.questions.BulkDelete(ctx, req, userID)
	if err != nil {
		s.loadErr = err
		return nil, err
	}

	if reloadErr := s.loadLocked(ctx); reloadErr != nil {
		return result, reloadErr
	}
	return result, nil
}

// BulkSetActive flips active flags on a batch and reloads the snapshot.
func (s *Store) BulkSetActive(ctx context.Context, req *services.BulkSetActiveRequest, userID string) (*services.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.questions.BulkSetActive(ctx, req, userID)
	if err != nil {
		s.loadErr = err
		return nil, err
	}

	if reloadErr := s.loadLocked(ctx); reloadErr != nil {
		return result, reloadErr
	}
	return result, nil
}

// BulkTag merges tags into a batch and reloads the snapshot.
func (s *Store) BulkTag(ctx context.Context, req *services.BulkTagRequest, userID string) (*services.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.questions.BulkTag(ctx, req, userID)
	if err != nil {
		s.loadErr = err
		return nil, err
	}

	if reloadErr := s.loadLocked(ctx); reloadErr != nil {
		return result, reloadErr
	}
	return result, nil
}

package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/query"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
)

// In-memory repository fakes shared by the service tests.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeQuestionRepo struct {
	questions     map[uint]*models.Question
	nextID        uint
	failGetByItem map[uint]bool
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{
		questions:     make(map[uint]*models.Question),
		nextID:        1,
		failGetByItem: make(map[uint]bool),
	}
}

func (r *fakeQuestionRepo) add(q *models.Question) *models.Question {
	if q.ID == 0 {
		q.ID = r.nextID
		r.nextID++
	} else if q.ID >= r.nextID {
		r.nextID = q.ID + 1
	}
	if q.HumanID == "" {
		q.HumanID = fmt.Sprintf("QB-%06d", q.ID)
	}
	r.questions[q.ID] = q
	return q
}

func (r *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	r.add(question)
	return nil
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	q, ok := r.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
	}
	return q, nil
}

func (r *fakeQuestionRepo) GetByHumanID(ctx context.Context, tx *gorm.DB, humanID string) (*models.Question, error) {
	for _, q := range r.questions {
		if q.HumanID == humanID {
			return q, nil
		}
	}
	return nil, fmt.Errorf("question %s: %w", humanID, repositories.ErrNotFound)
}

func (r *fakeQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if _, ok := r.questions[question.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.questions[question.ID] = question
	return nil
}

func (r *fakeQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	if _, ok := r.questions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.questions, id)
	return nil
}

func (r *fakeQuestionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	for _, q := range questions {
		r.add(q)
	}
	return nil
}

func (r *fakeQuestionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	var out []*models.Question
	for _, id := range ids {
		if q, ok := r.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) DeleteBatch(ctx context.Context, tx *gorm.DB, ids []uint) error {
	for _, id := range ids {
		delete(r.questions, id)
	}
	return nil
}

func (r *fakeQuestionRepo) SetActiveBatch(ctx context.Context, tx *gorm.DB, ids []uint, active bool) error {
	for _, id := range ids {
		if q, ok := r.questions[id]; ok {
			q.IsActive = active
		}
	}
	return nil
}

func (r *fakeQuestionRepo) AddTagsBatch(ctx context.Context, tx *gorm.DB, ids []uint, tags []string) error {
	for _, id := range ids {
		q, ok := r.questions[id]
		if !ok {
			continue
		}
		seen := make(map[string]bool, len(q.Tags))
		for _, t := range q.Tags {
			seen[t] = true
		}
		for _, t := range tags {
			if !seen[t] {
				q.Tags = append(q.Tags, t)
				seen[t] = true
			}
		}
	}
	return nil
}

func (r *fakeQuestionRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*models.Question, error) {
	out := make([]*models.Question, 0, len(r.questions))
	for _, q := range r.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeQuestionRepo) List(ctx context.Context, tx *gorm.DB, filters query.QuestionFilters, page, limit int) ([]*models.Question, int64, error) {
	all, _ := r.ListAll(ctx, tx)
	filtered := query.Filter(all, filters)
	return filtered, int64(len(filtered)), nil
}

func (r *fakeQuestionRepo) GetByHierarchyItem(ctx context.Context, tx *gorm.DB, hierarchyItemID uint) ([]*models.Question, error) {
	if r.failGetByItem[hierarchyItemID] {
		return nil, fmt.Errorf("lookup failed")
	}
	var out []*models.Question
	for _, q := range r.questions {
		if q.HierarchyItemID != nil && *q.HierarchyItemID == hierarchyItemID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) DetachFromHierarchyItems(ctx context.Context, tx *gorm.DB, hierarchyItemIDs []uint) error {
	ids := make(map[uint]bool, len(hierarchyItemIDs))
	for _, id := range hierarchyItemIDs {
		ids[id] = true
	}
	for _, q := range r.questions {
		if q.HierarchyItemID != nil && ids[*q.HierarchyItemID] {
			q.HierarchyItemID = nil
		}
	}
	return nil
}

func (r *fakeQuestionRepo) NextHumanID(ctx context.Context, tx *gorm.DB) (string, error) {
	return fmt.Sprintf("QB-%06d", r.nextID), nil
}

func (r *fakeQuestionRepo) CountByDifficulty(ctx context.Context, tx *gorm.DB) (map[models.DifficultyLevel]int64, error) {
	out := make(map[models.DifficultyLevel]int64)
	for _, q := range r.questions {
		out[q.Difficulty]++
	}
	return out, nil
}

func (r *fakeQuestionRepo) CountByType(ctx context.Context, tx *gorm.DB) (map[models.QuestionType]int64, error) {
	out := make(map[models.QuestionType]int64)
	for _, q := range r.questions {
		out[q.Type]++
	}
	return out, nil
}

func (r *fakeQuestionRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	return int64(len(r.questions)), nil
}

type fakeHierarchyRepo struct {
	items       map[uint]*models.HierarchyItem
	nextID      uint
	deleteOrder []uint
	failDelete  map[uint]bool
}

func newFakeHierarchyRepo() *fakeHierarchyRepo {
	return &fakeHierarchyRepo{
		items:      make(map[uint]*models.HierarchyItem),
		nextID:     1,
		failDelete: make(map[uint]bool),
	}
}

func (r *fakeHierarchyRepo) add(item *models.HierarchyItem) *models.HierarchyItem {
	if item.ID == 0 {
		item.ID = r.nextID
		r.nextID++
	} else if item.ID >= r.nextID {
		r.nextID = item.ID + 1
	}
	r.items[item.ID] = item
	return item
}

func (r *fakeHierarchyRepo) Create(ctx context.Context, tx *gorm.DB, item *models.HierarchyItem) error {
	r.add(item)
	return nil
}

func (r *fakeHierarchyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.HierarchyItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("hierarchy item %d: %w", id, repositories.ErrNotFound)
	}
	return item, nil
}

func (r *fakeHierarchyRepo) Update(ctx context.Context, tx *gorm.DB, item *models.HierarchyItem) error {
	if _, ok := r.items[item.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.items[item.ID] = item
	return nil
}

func (r *fakeHierarchyRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	if r.failDelete[id] {
		return fmt.Errorf("delete failed")
	}
	if _, ok := r.items[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.items, id)
	r.deleteOrder = append(r.deleteOrder, id)
	return nil
}

func (r *fakeHierarchyRepo) GetTree(ctx context.Context, tx *gorm.DB, hierarchyType models.HierarchyType) ([]*models.HierarchyItem, error) {
	var roots []*models.HierarchyItem
	for _, item := range r.items {
		if item.Type == hierarchyType && item.ParentID == nil {
			roots = append(roots, item)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })
	return roots, nil
}

func (r *fakeHierarchyRepo) GetChildren(ctx context.Context, tx *gorm.DB, parentID uint) ([]*models.HierarchyItem, error) {
	var out []*models.HierarchyItem
	for _, item := range r.items {
		if item.ParentID != nil && *item.ParentID == parentID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetDescendants returns the subtree breadth-first, excluding the root.
func (r *fakeHierarchyRepo) GetDescendants(ctx context.Context, tx *gorm.DB, id uint) ([]*models.HierarchyItem, error) {
	var out []*models.HierarchyItem
	frontier := []uint{id}
	for len(frontier) > 0 {
		var next []uint
		for _, parentID := range frontier {
			children, _ := r.GetChildren(ctx, tx, parentID)
			for _, child := range children {
				out = append(out, child)
				next = append(next, child.ID)
			}
		}
		frontier = next
	}
	return out, nil
}

func (r *fakeHierarchyRepo) GetPath(ctx context.Context, tx *gorm.DB, id uint) ([]*models.HierarchyItem, error) {
	var path []*models.HierarchyItem
	current, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("hierarchy item %d: %w", id, repositories.ErrNotFound)
	}
	for current != nil {
		path = append([]*models.HierarchyItem{current}, path...)
		if current.ParentID == nil {
			break
		}
		current = r.items[*current.ParentID]
	}
	return path, nil
}

func (r *fakeHierarchyRepo) RecountQuestions(ctx context.Context, tx *gorm.DB, id uint) error {
	return nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) add(id string, role models.UserRole) {
	r.users[id] = &models.User{ID: id, Role: role, Email: id + "@test.local"}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var out []*models.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := r.users[id]
	return ok, nil
}

func (r *fakeUserRepo) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	u, ok := r.users[id]
	if !ok {
		return false, repositories.ErrNotFound
	}
	return u.Role == role, nil
}

type fakeDashboardRepo struct {
	question  *fakeQuestionRepo
	hierarchy *fakeHierarchyRepo
}

func (r *fakeDashboardRepo) GetQuestionBankStats(ctx context.Context) (*repositories.QuestionBankStats, error) {
	byType, _ := r.question.CountByType(ctx, nil)
	byDiff, _ := r.question.CountByDifficulty(ctx, nil)

	stats := &repositories.QuestionBankStats{
		QuestionsByType:    byType,
		QuestionsByDiff:    byDiff,
		QuestionsByCreator: make(map[string]int64),
		HierarchyItems:     int64(len(r.hierarchy.items)),
	}
	for _, q := range r.question.questions {
		stats.TotalQuestions++
		if q.IsActive {
			stats.ActiveQuestions++
		}
		stats.QuestionsByCreator[q.CreatedBy]++
	}
	return stats, nil
}

func (r *fakeDashboardRepo) GetRecentQuestions(ctx context.Context, limit int) ([]*models.Question, error) {
	all, _ := r.question.ListAll(ctx, nil)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

type fakeRepository struct {
	question  *fakeQuestionRepo
	hierarchy *fakeHierarchyRepo
	user      *fakeUserRepo
	dashboard *fakeDashboardRepo
}

func newFakeRepository() *fakeRepository {
	question := newFakeQuestionRepo()
	hierarchy := newFakeHierarchyRepo()
	return &fakeRepository{
		question:  question,
		hierarchy: hierarchy,
		user:      newFakeUserRepo(),
		dashboard: &fakeDashboardRepo{question: question, hierarchy: hierarchy},
	}
}

func (r *fakeRepository) Question() repositories.QuestionRepository   { return r.question }
func (r *fakeRepository) Hierarchy() repositories.HierarchyRepository { return r.hierarchy }
func (r *fakeRepository) User() repositories.UserRepository           { return r.user }
func (r *fakeRepository) Dashboard() repositories.DashboardRepository { return r.dashboard }

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *fakeRepository) Ping(ctx context.Context) error { return nil }
func (r *fakeRepository) Close() error                   { return nil }

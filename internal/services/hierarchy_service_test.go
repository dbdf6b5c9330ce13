package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/SAP-F-2025/question-bank-service/internal/events"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

func newHierarchyServiceForTest(repo *fakeRepository) (HierarchyService, *events.MockEventPublisher) {
	publisher := events.NewMockEventPublisher()
	svc := NewHierarchyService(repo, nil, testLogger(), validator.New(), publisher)
	return svc, publisher
}

// buildTestTree seeds: root year(1) -> subject(2), subject(3); subject(2) -> part(4).
func buildTestTree(repo *fakeRepository) {
	root := &models.HierarchyItem{ID: 1, Name: "2024", Type: models.HierarchyQuestionBank, Level: models.LevelYear}
	repo.hierarchy.add(root)
	parentID := root.ID
	repo.hierarchy.add(&models.HierarchyItem{ID: 2, Name: "Physics", Type: models.HierarchyQuestionBank, Level: models.LevelSubject, ParentID: &parentID})
	repo.hierarchy.add(&models.HierarchyItem{ID: 3, Name: "Chemistry", Type: models.HierarchyQuestionBank, Level: models.LevelSubject, ParentID: &parentID})
	subjectID := uint(2)
	repo.hierarchy.add(&models.HierarchyItem{ID: 4, Name: "Mechanics", Type: models.HierarchyQuestionBank, Level: models.LevelPart, ParentID: &subjectID})
}

func TestHierarchyServiceCreate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		req     CreateHierarchyRequest
		wantErr bool
	}{
		{
			name: "root year ok",
			req:  CreateHierarchyRequest{Name: "2025", Type: models.HierarchyQuestionBank, Level: models.LevelYear},
		},
		{
			name:    "root must be top level",
			req:     CreateHierarchyRequest{Name: "Orphan", Type: models.HierarchyQuestionBank, Level: models.LevelSubject},
			wantErr: true,
		},
		{
			name: "child one level below parent",
			req: CreateHierarchyRequest{
				Name: "Biology", Type: models.HierarchyQuestionBank,
				Level: models.LevelSubject, ParentID: uintPtr(1),
			},
		},
		{
			name: "child skipping a level rejected",
			req: CreateHierarchyRequest{
				Name: "Waves", Type: models.HierarchyQuestionBank,
				Level: models.LevelSection, ParentID: uintPtr(1),
			},
			wantErr: true,
		},
		{
			name: "parent from other tree rejected",
			req: CreateHierarchyRequest{
				Name: "Algebra", Type: models.HierarchyPreviousPapers,
				Level: models.LevelSubject, ParentID: uintPtr(1),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			repo.user.add("teacher-1", models.RoleTeacher)
			buildTestTree(repo)
			svc, _ := newHierarchyServiceForTest(repo)

			item, err := svc.Create(ctx, &tt.req, "teacher-1")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got item %+v", item)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if item.ID == 0 {
				t.Error("created item has no id")
			}
			if item.CreatedBy != "teacher-1" {
				t.Errorf("CreatedBy = %q, want teacher-1", item.CreatedBy)
			}
		})
	}
}

func TestHierarchyServiceCreateRequiresRole(t *testing.T) {
	repo := newFakeRepository()
	repo.user.add("student-1", models.RoleStudent)
	svc, _ := newHierarchyServiceForTest(repo)

	req := &CreateHierarchyRequest{Name: "2025", Type: models.HierarchyQuestionBank, Level: models.LevelYear}
	_, err := svc.Create(context.Background(), req, "student-1")
	if !IsPermissionError(err) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestHierarchyServiceDeleteRejectsNodesWithChildren(t *testing.T) {
	repo := newFakeRepository()
	repo.user.add("admin-1", models.RoleAdmin)
	buildTestTree(repo)
	svc, _ := newHierarchyServiceForTest(repo)

	err := svc.Delete(context.Background(), 1, "admin-1")
	if !IsValidationError(err) {
		t.Fatalf("expected validation error for node with children, got %v", err)
	}

	// Leaf deletion detaches its questions first
	itemID := uint(4)
	repo.question.add(&models.Question{Type: models.SingleChoice, Text: "q", Difficulty: models.DifficultyEasy, Points: 1, HierarchyItemID: &itemID, CreatedBy: "admin-1"})

	if err := svc.Delete(context.Background(), 4, "admin-1"); err != nil {
		t.Fatalf("leaf delete failed: %v", err)
	}
	for _, q := range repo.question.questions {
		if q.HierarchyItemID != nil {
			t.Errorf("question %d still attached to deleted node", q.ID)
		}
	}
}

func TestHierarchyServiceCascadeDeleteOrder(t *testing.T) {
	repo := newFakeRepository()
	repo.user.add("admin-1", models.RoleAdmin)
	buildTestTree(repo)

	// Questions scattered across the subtree
	for _, itemID := range []uint{1, 2, 4} {
		id := itemID
		repo.question.add(&models.Question{Type: models.SingleChoice, Text: "q", Difficulty: models.DifficultyEasy, Points: 1, HierarchyItemID: &id, CreatedBy: "admin-1"})
	}

	svc, publisher := newHierarchyServiceForTest(repo)

	result, err := svc.CascadeDelete(context.Background(), 1, "admin-1")
	if err != nil {
		t.Fatalf("cascade delete failed: %v", err)
	}

	if len(result.DeletedItems) != 4 {
		t.Errorf("DeletedItems = %v, want 4 items", result.DeletedItems)
	}
	if result.DetachedQuestions != 3 {
		t.Errorf("DetachedQuestions = %d, want 3", result.DetachedQuestions)
	}
	if len(result.Failed) != 0 {
		t.Errorf("unexpected failures: %v", result.Failed)
	}

	// No node may fall before any of its children
	pos := make(map[uint]int)
	for i, id := range repo.hierarchy.deleteOrder {
		pos[id] = i
	}
	if pos[4] > pos[2] {
		t.Errorf("grandchild 4 deleted after its parent 2: order %v", repo.hierarchy.deleteOrder)
	}
	if pos[2] > pos[1] || pos[3] > pos[1] {
		t.Errorf("child deleted after root: order %v", repo.hierarchy.deleteOrder)
	}
	if repo.hierarchy.deleteOrder[len(repo.hierarchy.deleteOrder)-1] != 1 {
		t.Errorf("root not deleted last: order %v", repo.hierarchy.deleteOrder)
	}

	// Questions detached, not deleted
	for _, q := range repo.question.questions {
		if q.HierarchyItemID != nil {
			t.Errorf("question %d still attached after cascade", q.ID)
		}
	}

	published := publisher.GetPublishedEvents()
	if len(published) == 0 {
		t.Fatal("no event published for cascade delete")
	}
	if published[len(published)-1].Topic != events.TopicHierarchyChange {
		t.Errorf("event topic = %q, want %q", published[len(published)-1].Topic, events.TopicHierarchyChange)
	}
}

func TestHierarchyServiceCascadeDeletePartialFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.user.add("admin-1", models.RoleAdmin)
	buildTestTree(repo)
	repo.hierarchy.failDelete[3] = true

	svc, _ := newHierarchyServiceForTest(repo)

	result, err := svc.CascadeDelete(context.Background(), 1, "admin-1")
	if err != nil {
		t.Fatalf("cascade delete failed: %v", err)
	}

	if _, ok := result.Failed[3]; !ok {
		t.Errorf("expected node 3 in Failed, got %v", result.Failed)
	}
	if len(result.DeletedItems) != 3 {
		t.Errorf("DeletedItems = %v, want the 3 healthy nodes", result.DeletedItems)
	}
}

func TestHierarchyServiceCascadeDeleteCountLookupFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.user.add("admin-1", models.RoleAdmin)
	buildTestTree(repo)

	// Questions under nodes 2 and 3, but the count lookup for node 3 breaks
	for _, itemID := range []uint{2, 3} {
		id := itemID
		repo.question.add(&models.Question{Type: models.SingleChoice, Text: "q", Difficulty: models.DifficultyEasy, Points: 1, HierarchyItemID: &id, CreatedBy: "admin-1"})
	}
	repo.question.failGetByItem[3] = true

	svc, _ := newHierarchyServiceForTest(repo)

	result, err := svc.CascadeDelete(context.Background(), 1, "admin-1")
	if err != nil {
		t.Fatalf("cascade delete failed: %v", err)
	}

	// The broken lookup is reported, not silently dropped
	if msg, ok := result.Failed[3]; !ok || !strings.Contains(msg, "count") {
		t.Errorf("Failed[3] = %q, %v; want a count failure entry", msg, ok)
	}
	if result.DetachedQuestions != 1 {
		t.Errorf("DetachedQuestions = %d, want 1 (node 3 uncounted)", result.DetachedQuestions)
	}

	// The walk still detaches and deletes the whole subtree
	if len(result.DeletedItems) != 4 {
		t.Errorf("DeletedItems = %v, want all 4 nodes", result.DeletedItems)
	}
	for _, q := range repo.question.questions {
		if q.HierarchyItemID != nil {
			t.Errorf("question %d still attached after cascade", q.ID)
		}
	}
}

func TestHierarchyServiceGetPath(t *testing.T) {
	repo := newFakeRepository()
	buildTestTree(repo)
	svc, _ := newHierarchyServiceForTest(repo)

	path, err := svc.GetPath(context.Background(), 4)
	if err != nil {
		t.Fatalf("GetPath failed: %v", err)
	}

	want := []uint{1, 2, 4}
	if len(path) != len(want) {
		t.Fatalf("path length = %d, want %d", len(path), len(want))
	}
	for i, id := range want {
		if path[i].ID != id {
			t.Errorf("path[%d].ID = %d, want %d", i, path[i].ID, id)
		}
	}
}

func TestHierarchyServiceGetByIDNotFound(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newHierarchyServiceForTest(repo)

	_, err := svc.GetByID(context.Background(), 42)
	if !errors.Is(err, ErrHierarchyNotFound) {
		t.Fatalf("expected ErrHierarchyNotFound, got %v", err)
	}
}

func uintPtr(v uint) *uint { return &v }

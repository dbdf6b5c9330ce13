package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/events"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

type hierarchyService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewHierarchyService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) HierarchyService {
	return &hierarchyService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// levelOrder maps each taxonomy level to its depth, root first.
var levelOrder = map[models.HierarchyLevel]int{
	models.LevelYear:    0,
	models.LevelSubject: 1,
	models.LevelPart:    2,
	models.LevelSection: 3,
	models.LevelChapter: 4,
}

// ===== CORE CRUD OPERATIONS =====

func (s *hierarchyService) Create(ctx context.Context, req *CreateHierarchyRequest, creatorID string) (*models.HierarchyItem, error) {
	s.logger.Info("Creating hierarchy item", "creator_id", creatorID, "type", req.Type, "level", req.Level)

	if errs := s.validator.GetBusinessValidator().ValidateHierarchyCreate(req); len(errs) > 0 {
		return nil, errs
	}

	if err := s.checkAdminOrTeacher(ctx, creatorID); err != nil {
		return nil, err
	}

	// Validate parent and level consistency
	if req.ParentID != nil {
		parent, err := s.repo.Hierarchy().GetByID(ctx, nil, *req.ParentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrHierarchyNotFound
			}
			return nil, fmt.Errorf("failed to get parent: %w", err)
		}
		if parent.Type != req.Type {
			return nil, NewValidationError("parent_id", "parent belongs to a different hierarchy type")
		}
		if levelOrder[req.Level] != levelOrder[parent.Level]+1 {
			return nil, NewValidationError("level", fmt.Sprintf("level %s cannot be a child of %s", req.Level, parent.Level))
		}
	} else if levelOrder[req.Level] != 0 {
		return nil, NewValidationError("level", "root items must be at the top level")
	}

	item := &models.HierarchyItem{
		Name:      req.Name,
		Type:      req.Type,
		Level:     req.Level,
		Order:     req.Order,
		ParentID:  req.ParentID,
		CreatedBy: creatorID,
	}

	if err := s.repo.Hierarchy().Create(ctx, nil, item); err != nil {
		return nil, fmt.Errorf("failed to create hierarchy item: %w", err)
	}

	s.logger.Info("Hierarchy item created", "item_id", item.ID)
	s.publishHierarchyEvent(ctx, "created", item.ID, string(item.Type))

	return item, nil
}

func (s *hierarchyService) GetByID(ctx context.Context, id uint) (*models.HierarchyItem, error) {
	item, err := s.repo.Hierarchy().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrHierarchyNotFound
		}
		return nil, fmt.Errorf("failed to get hierarchy item: %w", err)
	}
	return item, nil
}

func (s *hierarchyService) Update(ctx context.Context, id uint, req *UpdateHierarchyRequest, userID string) (*models.HierarchyItem, error) {
	s.logger.Info("Updating hierarchy item", "item_id", id, "user_id", userID)

	if err := s.checkAdminOrTeacher(ctx, userID); err != nil {
		return nil, err
	}

	item, err := s.repo.Hierarchy().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrHierarchyNotFound
		}
		return nil, fmt.Errorf("failed to get hierarchy item: %w", err)
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Order != nil {
		item.Order = *req.Order
	}
	if req.IsPublished != nil {
		item.IsPublished = *req.IsPublished
	}

	if err := s.repo.Hierarchy().Update(ctx, nil, item); err != nil {
		return nil, fmt.Errorf("failed to update hierarchy item: %w", err)
	}

	s.publishHierarchyEvent(ctx, "updated", item.ID, string(item.Type))
	return item, nil
}

// Delete removes a single leaf node. Nodes with children must go through
// CascadeDelete.
func (s *hierarchyService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting hierarchy item", "item_id", id, "user_id", userID)

	if err := s.checkAdminOrTeacher(ctx, userID); err != nil {
		return err
	}

	children, err := s.repo.Hierarchy().GetChildren(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to check children: %w", err)
	}
	if len(children) > 0 {
		return NewValidationError("id", "item has children; use cascade delete")
	}

	item, err := s.repo.Hierarchy().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrHierarchyNotFound
		}
		return fmt.Errorf("failed to get hierarchy item: %w", err)
	}

	if err := s.repo.Question().DetachFromHierarchyItems(ctx, nil, []uint{id}); err != nil {
		return fmt.Errorf("failed to detach questions: %w", err)
	}

	if err := s.repo.Hierarchy().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete hierarchy item: %w", err)
	}

	s.publishHierarchyEvent(ctx, "deleted", id, string(item.Type))
	return nil
}

// ===== TREE OPERATIONS =====

func (s *hierarchyService) GetTree(ctx context.Context, hierarchyType models.HierarchyType) (*HierarchyTreeResponse, error) {
	if !hierarchyType.Valid() {
		return nil, NewValidationError("type", "unknown hierarchy type")
	}

	items, err := s.repo.Hierarchy().GetTree(ctx, nil, hierarchyType)
	if err != nil {
		return nil, fmt.Errorf("failed to get hierarchy tree: %w", err)
	}

	return &HierarchyTreeResponse{
		Type:  hierarchyType,
		Items: items,
	}, nil
}

func (s *hierarchyService) GetChildren(ctx context.Context, id uint) ([]*models.HierarchyItem, error) {
	children, err := s.repo.Hierarchy().GetChildren(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get children: %w", err)
	}
	return children, nil
}

func (s *hierarchyService) GetPath(ctx context.Context, id uint) ([]*models.HierarchyItem, error) {
	path, err := s.repo.Hierarchy().GetPath(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrHierarchyNotFound
		}
		return nil, fmt.Errorf("failed to get path: %w", err)
	}
	return path, nil
}

// ===== CASCADE DELETE =====

// CascadeDelete removes a node and its whole subtree. Questions filed under
// any node in the subtree are detached first, then nodes are deleted
// deepest-first so no parent falls before its children. Individual node
// failures are recorded and do not abort the rest.
func (s *hierarchyService) CascadeDelete(ctx context.Context, id uint, userID string) (*CascadeDeleteResult, error) {
	s.logger.Info("Cascade deleting hierarchy subtree", "item_id", id, "user_id", userID)

	if err := s.checkAdminOrTeacher(ctx, userID); err != nil {
		return nil, err
	}

	root, err := s.repo.Hierarchy().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrHierarchyNotFound
		}
		return nil, fmt.Errorf("failed to get hierarchy item: %w", err)
	}

	descendants, err := s.repo.Hierarchy().GetDescendants(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get descendants: %w", err)
	}

	// Build the deletion order: descendants come back breadth-first from the
	// root, so reversing yields deepest-first, then the root itself.
	order := make([]uint, 0, len(descendants)+1)
	for i := len(descendants) - 1; i >= 0; i-- {
		order = append(order, descendants[i].ID)
	}
	order = append(order, root.ID)

	result := &CascadeDeleteResult{Failed: make(map[uint]string)}

	// Detach questions from the entire subtree up front
	allIDs := make([]uint, len(order))
	copy(allIDs, order)

	for _, itemID := range allIDs {
		questions, err := s.repo.Question().GetByHierarchyItem(ctx, nil, itemID)
		if err != nil {
			result.Failed[itemID] = fmt.Sprintf("failed to count attached questions: %v", err)
			s.logger.Error("Failed to count questions for cascade delete", "error", err, "item_id", itemID)
			continue
		}
		result.DetachedQuestions += int64(len(questions))
	}

	if err := s.repo.Question().DetachFromHierarchyItems(ctx, nil, allIDs); err != nil {
		return nil, fmt.Errorf("failed to detach questions: %w", err)
	}

	for _, itemID := range order {
		if err := s.repo.Hierarchy().Delete(ctx, nil, itemID); err != nil {
			result.Failed[itemID] = err.Error()
			s.logger.Error("Failed to delete hierarchy item in cascade", "error", err, "item_id", itemID)
			continue
		}
		result.DeletedItems = append(result.DeletedItems, itemID)
	}

	s.logger.Info("Cascade delete completed",
		"item_id", id,
		"deleted", len(result.DeletedItems),
		"failed", len(result.Failed),
		"detached_questions", result.DetachedQuestions)

	s.publishHierarchyEvent(ctx, "cascade_deleted", id, string(root.Type))
	return result, nil
}

// ===== HELPERS =====

func (s *hierarchyService) checkAdminOrTeacher(ctx context.Context, userID string) error {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.Role != models.RoleTeacher && user.Role != models.RoleAdmin {
		return NewPermissionError(userID, 0, "hierarchy", "modify", "insufficient role permissions")
	}

	return nil
}

func (s *hierarchyService) publishHierarchyEvent(ctx context.Context, action string, itemID uint, hierarchyType string) {
	event := events.NewEvent(events.TopicHierarchyChange, map[string]interface{}{
		"action":         action,
		"item_id":        itemID,
		"hierarchy_type": hierarchyType,
	})

	if err := s.publisher.Publish(ctx, events.TopicHierarchyChange, event); err != nil {
		s.logger.Error("Failed to publish hierarchy event", "error", err, "action", action, "item_id", itemID)
	}
}

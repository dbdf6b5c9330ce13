package services

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/question-bank-service/internal/events"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
)

// ===== RESPONSE BUILDING =====

func (s *questionService) buildQuestionResponse(ctx context.Context, question *models.Question, userID string) *QuestionResponse {
	canEdit := question.CreatedBy == userID
	if !canEdit {
		if isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin); err == nil && isAdmin {
			canEdit = true
		}
	}

	return &QuestionResponse{
		Question:  question,
		CanEdit:   canEdit,
		CanDelete: canEdit,
	}
}

// ===== PERMISSION HELPERS =====

func (s *questionService) canCreateQuestion(ctx context.Context, userID string) (bool, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	return user.Role == models.RoleTeacher || user.Role == models.RoleAdmin, nil
}

// partitionByPermission splits a bulk id list into editable ids and per-id
// failures recorded on the result. Missing questions and permission denials
// are failures; they never abort the batch.
func (s *questionService) partitionByPermission(ctx context.Context, ids []uint, userID string, result *BulkResult) ([]uint, error) {
	isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to check role: %w", err)
	}

	questions, err := s.repo.Question().GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	found := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		found[q.ID] = q
	}

	var editable []uint
	for _, id := range ids {
		q, ok := found[id]
		if !ok {
			result.Failed[id] = "question not found"
			continue
		}
		if !isAdmin && q.CreatedBy != userID {
			result.Failed[id] = "permission denied"
			continue
		}
		editable = append(editable, id)
	}

	return editable, nil
}

// ===== UPDATE APPLICATION =====

func (s *questionService) applyQuestionUpdates(ctx context.Context, question *models.Question, req *UpdateQuestionRequest) error {
	if req.Type != nil {
		question.Type = *req.Type
	}
	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}
	if req.Options != nil {
		question.Options = datatypes.NewJSONSlice(req.Options)
	}
	if req.Assertion != nil {
		question.Assertion = req.Assertion
	}
	if req.Reasoning != nil {
		question.Reasoning = req.Reasoning
	}
	if req.Points != nil {
		question.Points = *req.Points
	}
	if req.TimeLimit != nil {
		question.TimeLimit = req.TimeLimit
	}
	if req.IsActive != nil {
		question.IsActive = *req.IsActive
	}
	if req.Tags != nil {
		question.Tags = datatypes.NewJSONSlice(req.Tags)
	}
	if req.SourceTags != nil {
		question.SourceTags = datatypes.NewJSONSlice(req.SourceTags)
	}
	if req.ExamTags != nil {
		question.ExamTags = datatypes.NewJSONSlice(req.ExamTags)
	}
	if req.Explanation != nil {
		question.Explanation = req.Explanation
	}
	if req.References != nil {
		question.References = req.References
	}

	if req.HierarchyItemID != nil && (question.HierarchyItemID == nil || *question.HierarchyItemID != *req.HierarchyItemID) {
		path, err := s.resolveHierarchyPath(ctx, *req.HierarchyItemID)
		if err != nil {
			return err
		}
		question.HierarchyItemID = req.HierarchyItemID
		question.HierarchyPath = datatypes.NewJSONType(path)
	}

	return nil
}

// resolveHierarchyPath walks the taxonomy chain and snapshots the node names
// by level for denormalized display on the question.
func (s *questionService) resolveHierarchyPath(ctx context.Context, hierarchyItemID uint) (models.HierarchyPath, error) {
	chain, err := s.repo.Hierarchy().GetPath(ctx, nil, hierarchyItemID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return models.HierarchyPath{}, ErrHierarchyNotFound
		}
		return models.HierarchyPath{}, fmt.Errorf("failed to resolve hierarchy path: %w", err)
	}

	var path models.HierarchyPath
	for _, item := range chain {
		switch item.Level {
		case models.LevelYear:
			path.Year = item.Name
		case models.LevelSubject:
			path.Subject = item.Name
		case models.LevelPart:
			path.Part = item.Name
		case models.LevelSection:
			path.Section = item.Name
		case models.LevelChapter:
			path.Chapter = item.Name
		}
	}

	return path, nil
}

// ===== EVENTS =====

func (s *questionService) publishQuestionEvent(ctx context.Context, topic string, question *models.Question) {
	event := events.NewEvent(topic, map[string]interface{}{
		"question_id": question.ID,
		"human_id":    question.HumanID,
		"type":        question.Type,
		"created_by":  question.CreatedBy,
	})

	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Error("Failed to publish question event", "error", err, "topic", topic, "question_id", question.ID)
	}
}

func (s *questionService) publishBulkEvent(ctx context.Context, action string, ids []uint, userID string) {
	if len(ids) == 0 {
		return
	}

	event := events.NewEvent(events.TopicQuestionsBulk, map[string]interface{}{
		"action":       action,
		"question_ids": ids,
		"user_id":      userID,
	})

	if err := s.publisher.Publish(ctx, events.TopicQuestionsBulk, event); err != nil {
		s.logger.Error("Failed to publish bulk event", "error", err, "action", action)
	}
}

func emptyIfNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

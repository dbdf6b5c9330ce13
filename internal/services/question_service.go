package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/events"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/query"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*QuestionResponse, error) {
	s.logger.Info("Creating question", "creator_id", creatorID, "type", req.Type)

	// Validate request with business rules
	if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	// Check user permissions
	canCreate, err := s.canCreateQuestion(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if !canCreate {
		return nil, NewPermissionError(creatorID, 0, "question", "create", "insufficient role permissions")
	}

	question, err := s.buildQuestionFromCreate(ctx, req, creatorID)
	if err != nil {
		return nil, err
	}

	if err = s.repo.Question().Create(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question created successfully", "question_id", question.ID, "human_id", question.HumanID)

	s.publishQuestionEvent(ctx, events.TopicQuestionCreated, question)

	return s.buildQuestionResponse(ctx, question, creatorID), nil
}

func (s *questionService) GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return s.buildQuestionResponse(ctx, question, userID), nil
}

func (s *questionService) GetByHumanID(ctx context.Context, humanID string, userID string) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByHumanID(ctx, nil, humanID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return s.buildQuestionResponse(ctx, question, userID), nil
}

func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error) {
	s.logger.Info("Updating question", "question_id", id, "user_id", userID)

	// Check edit permission
	canEdit, err := s.CanEdit(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, NewPermissionError(userID, id, "question", "update", "not owner or insufficient permissions")
	}

	// Get current question
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	// Validate against the state the question would end up in
	if errs := s.validator.GetBusinessValidator().ValidateQuestionUpdate(req, question); len(errs) > 0 {
		return nil, errs
	}

	if err := s.applyQuestionUpdates(ctx, question, req); err != nil {
		return nil, err
	}

	if err = s.repo.Question().Update(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.logger.Info("Question updated successfully", "question_id", id)

	s.publishQuestionEvent(ctx, events.TopicQuestionUpdated, question)

	return s.buildQuestionResponse(ctx, question, userID), nil
}

func (s *questionService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting question", "question_id", id, "user_id", userID)

	canDelete, err := s.CanDelete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !canDelete {
		return NewPermissionError(userID, id, "question", "delete", "not owner or insufficient permissions")
	}

	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	if err := s.repo.Question().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	// Keep the taxonomy rollup current
	if question.HierarchyItemID != nil {
		if err := s.repo.Hierarchy().RecountQuestions(ctx, nil, *question.HierarchyItemID); err != nil {
			s.logger.Error("Failed to recount questions after delete", "error", err, "hierarchy_item_id", *question.HierarchyItemID)
		}
	}

	s.logger.Info("Question deleted successfully", "question_id", id)

	s.publishQuestionEvent(ctx, events.TopicQuestionDeleted, question)
	return nil
}

// ===== LIST AND SEARCH OPERATIONS =====

// List fetches the collection wholesale and runs the derivation pipeline
// over it. The working set is small enough that in-process filtering beats
// a round trip per keystroke.
func (s *questionService) List(ctx context.Context, q query.SearchQuery, userID string) (*QuestionListResponse, error) {
	if q.SortBy != "" && !q.SortBy.Valid() {
		return nil, ErrInvalidSortKey
	}
	if q.SortBy == "" {
		def := query.DefaultQuery()
		q.SortBy = def.SortBy
		q.SortOrder = def.SortOrder
	}
	if q.SortOrder == "" {
		q.SortOrder = query.SortDesc
	}

	questions, err := s.repo.Question().ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	result := query.Run(questions, q)

	response := &QuestionListResponse{
		Questions:  make([]*QuestionResponse, len(result.Questions)),
		Pagination: result.Pagination,
	}
	for i, question := range result.Questions {
		response.Questions[i] = s.buildQuestionResponse(ctx, question, userID)
	}

	return response, nil
}

func (s *questionService) ListAll(ctx context.Context) ([]*models.Question, error) {
	questions, err := s.repo.Question().ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// ===== BULK OPERATIONS =====

// CreateBatch validates and stores a batch of questions. A bad row is
// reported with its position and skipped; the rest of the batch proceeds.
func (s *questionService) CreateBatch(ctx context.Context, reqs []*CreateQuestionRequest, creatorID string) (*BatchCreateResult, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}

	s.logger.Info("Batch creating questions", "creator_id", creatorID, "count", len(reqs))

	canCreate, err := s.canCreateQuestion(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if !canCreate {
		return nil, NewPermissionError(creatorID, 0, "question", "create", "insufficient role permissions")
	}

	result := &BatchCreateResult{}
	var questions []*models.Question
	for i, req := range reqs {
		if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
			result.Errors = append(result.Errors, ImportRowError{Row: i + 1, Message: errs.Error()})
			continue
		}
		question, err := s.buildQuestionFromCreate(ctx, req, creatorID)
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: i + 1, Message: err.Error()})
			continue
		}
		questions = append(questions, question)
	}

	if len(questions) > 0 {
		if err := s.repo.Question().CreateBatch(ctx, nil, questions); err != nil {
			return nil, fmt.Errorf("failed to create questions: %w", err)
		}

		ids := make([]uint, len(questions))
		for i, question := range questions {
			ids[i] = question.ID
			result.Created = append(result.Created, s.buildQuestionResponse(ctx, question, creatorID))
		}
		s.publishBulkEvent(ctx, "created", ids, creatorID)
	}

	s.logger.Info("Batch create completed", "created", len(result.Created), "failed", len(result.Errors))
	return result, nil
}

func (s *questionService) BulkDelete(ctx context.Context, req *BulkDeleteRequest, userID string) (*BulkResult, error) {
	if len(req.IDs) == 0 {
		return nil, ErrEmptyBatch
	}

	s.logger.Info("Bulk deleting questions", "user_id", userID, "count", len(req.IDs))

	result := &BulkResult{Failed: make(map[uint]string)}

	deletable, err := s.partitionByPermission(ctx, req.IDs, userID, result)
	if err != nil {
		return nil, err
	}

	// Recount affected taxonomy nodes afterwards
	affected := make(map[uint]bool)
	questions, err := s.repo.Question().GetByIDs(ctx, nil, deletable)
	if err == nil {
		for _, q := range questions {
			if q.HierarchyItemID != nil {
				affected[*q.HierarchyItemID] = true
			}
		}
	}

	if len(deletable) > 0 {
		if err := s.repo.Question().DeleteBatch(ctx, nil, deletable); err != nil {
			return nil, fmt.Errorf("failed to delete questions: %w", err)
		}
		result.Succeeded = deletable
	}

	for itemID := range affected {
		if err := s.repo.Hierarchy().RecountQuestions(ctx, nil, itemID); err != nil {
			s.logger.Error("Failed to recount questions after bulk delete", "error", err, "hierarchy_item_id", itemID)
		}
	}

	s.publishBulkEvent(ctx, "deleted", result.Succeeded, userID)
	return result, nil
}

func (s *questionService) BulkSetActive(ctx context.Context, req *BulkSetActiveRequest, userID string) (*BulkResult, error) {
	if len(req.IDs) == 0 {
		return nil, ErrEmptyBatch
	}

	s.logger.Info("Bulk setting active flag", "user_id", userID, "count", len(req.IDs), "active", req.Active)

	result := &BulkResult{Failed: make(map[uint]string)}

	editable, err := s.partitionByPermission(ctx, req.IDs, userID, result)
	if err != nil {
		return nil, err
	}

	if len(editable) > 0 {
		if err := s.repo.Question().SetActiveBatch(ctx, nil, editable, req.Active); err != nil {
			return nil, fmt.Errorf("failed to set active flag: %w", err)
		}
		result.Succeeded = editable
	}

	s.publishBulkEvent(ctx, "activity_changed", result.Succeeded, userID)
	return result, nil
}

func (s *questionService) BulkTag(ctx context.Context, req *BulkTagRequest, userID string) (*BulkResult, error) {
	if len(req.IDs) == 0 {
		return nil, ErrEmptyBatch
	}
	if errs := s.validator.Validate(req); errs != nil {
		return nil, errs
	}

	s.logger.Info("Bulk tagging questions", "user_id", userID, "count", len(req.IDs), "tags", req.Tags)

	result := &BulkResult{Failed: make(map[uint]string)}

	editable, err := s.partitionByPermission(ctx, req.IDs, userID, result)
	if err != nil {
		return nil, err
	}

	if len(editable) > 0 {
		if err := s.repo.Question().AddTagsBatch(ctx, nil, editable, req.Tags); err != nil {
			return nil, fmt.Errorf("failed to tag questions: %w", err)
		}
		result.Succeeded = editable
	}

	s.publishBulkEvent(ctx, "tagged", result.Succeeded, userID)
	return result, nil
}

// ===== PERMISSION CHECKS =====

func (s *questionService) CanEdit(ctx context.Context, id uint, userID string) (bool, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrQuestionNotFound
		}
		return false, fmt.Errorf("failed to get question: %w", err)
	}

	if question.CreatedBy == userID {
		return true, nil
	}

	return s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
}

func (s *questionService) CanDelete(ctx context.Context, id uint, userID string) (bool, error) {
	return s.CanEdit(ctx, id, userID)
}

// buildQuestionFromCreate assembles the model from a validated request,
// resolving the taxonomy path snapshot when the question is filed under a node.
func (s *questionService) buildQuestionFromCreate(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*models.Question, error) {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	question := &models.Question{
		Type:        req.Type,
		Text:        req.Text,
		Difficulty:  req.Difficulty,
		Options:     datatypes.NewJSONSlice(req.Options),
		Assertion:   req.Assertion,
		Reasoning:   req.Reasoning,
		Points:      req.Points,
		TimeLimit:   req.TimeLimit,
		IsActive:    isActive,
		Tags:        datatypes.NewJSONSlice(emptyIfNil(req.Tags)),
		SourceTags:  datatypes.NewJSONSlice(emptyIfNil(req.SourceTags)),
		ExamTags:    datatypes.NewJSONSlice(emptyIfNil(req.ExamTags)),
		Explanation: req.Explanation,
		References:  req.References,
		CreatedBy:   creatorID,
	}

	if req.HierarchyItemID != nil {
		path, err := s.resolveHierarchyPath(ctx, *req.HierarchyItemID)
		if err != nil {
			return nil, err
		}
		question.HierarchyItemID = req.HierarchyItemID
		question.HierarchyPath = datatypes.NewJSONType(path)
	}

	return question, nil
}

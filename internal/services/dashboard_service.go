package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
)

type dashboardService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// GetStats assembles the collection-wide dashboard numbers
func (s *dashboardService) GetStats(ctx context.Context) (*DashboardStats, error) {
	bankStats, err := s.repo.Dashboard().GetQuestionBankStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get question bank stats: %w", err)
	}

	return &DashboardStats{
		TotalQuestions:     bankStats.TotalQuestions,
		ActiveQuestions:    bankStats.ActiveQuestions,
		InactiveQuestions:  bankStats.TotalQuestions - bankStats.ActiveQuestions,
		QuestionsByType:    bankStats.QuestionsByType,
		QuestionsByDiff:    bankStats.QuestionsByDiff,
		QuestionsByCreator: bankStats.QuestionsByCreator,
		HierarchyItems:     bankStats.HierarchyItems,
		GeneratedAt:        time.Now().UTC(),
	}, nil
}

// GetRecentQuestions returns the newest questions for the dashboard feed
func (s *dashboardService) GetRecentQuestions(ctx context.Context, limit int) (*RecentQuestionsResponse, error) {
	questions, err := s.repo.Dashboard().GetRecentQuestions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent questions: %w", err)
	}

	return &RecentQuestionsResponse{Questions: questions}, nil
}

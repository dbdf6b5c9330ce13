package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
)

type DashboardPostgreSQL struct {
	db *gorm.DB
}

func NewDashboardPostgreSQL(db *gorm.DB) repositories.DashboardRepository {
	return &DashboardPostgreSQL{db: db}
}

// GetQuestionBankStats aggregates the collection-wide numbers shown on the
// dashboard. Each aggregate is a separate query; they are cheap and the
// caller caches the assembled result.
func (d *DashboardPostgreSQL) GetQuestionBankStats(ctx context.Context) (*repositories.QuestionBankStats, error) {
	stats := &repositories.QuestionBankStats{
		QuestionsByType:    make(map[models.QuestionType]int64),
		QuestionsByDiff:    make(map[models.DifficultyLevel]int64),
		QuestionsByCreator: make(map[string]int64),
	}

	if err := d.db.WithContext(ctx).
		Model(&models.Question{}).
		Count(&stats.TotalQuestions).Error; err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	if err := d.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("is_active = ?", true).
		Count(&stats.ActiveQuestions).Error; err != nil {
		return nil, fmt.Errorf("failed to count active questions: %w", err)
	}

	type row struct {
		Key   string
		Count int64
	}

	var byType []row
	if err := d.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("type AS key, COUNT(*) AS count").
		Group("type").
		Scan(&byType).Error; err != nil {
		return nil, fmt.Errorf("failed to group by type: %w", err)
	}
	for _, r := range byType {
		stats.QuestionsByType[models.QuestionType(r.Key)] = r.Count
	}

	var byDiff []row
	if err := d.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("difficulty AS key, COUNT(*) AS count").
		Group("difficulty").
		Scan(&byDiff).Error; err != nil {
		return nil, fmt.Errorf("failed to group by difficulty: %w", err)
	}
	for _, r := range byDiff {
		stats.QuestionsByDiff[models.DifficultyLevel(r.Key)] = r.Count
	}

	var byCreator []row
	if err := d.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("created_by AS key, COUNT(*) AS count").
		Group("created_by").
		Scan(&byCreator).Error; err != nil {
		return nil, fmt.Errorf("failed to group by creator: %w", err)
	}
	for _, r := range byCreator {
		stats.QuestionsByCreator[r.Key] = r.Count
	}

	if err := d.db.WithContext(ctx).
		Model(&models.HierarchyItem{}).
		Count(&stats.HierarchyItems).Error; err != nil {
		return nil, fmt.Errorf("failed to count hierarchy items: %w", err)
	}

	return stats, nil
}

// GetRecentQuestions returns the newest questions for the dashboard feed
func (d *DashboardPostgreSQL) GetRecentQuestions(ctx context.Context, limit int) ([]*models.Question, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	var questions []*models.Question
	if err := d.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent questions: %w", err)
	}

	return questions, nil
}

package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskhub/internal/model"
)

// RecentCompletion is a completion joined with the display fields of the
// task it belongs to. TaskTitle is empty for orphaned completions whose
// task has since been deleted.
type RecentCompletion struct {
	model.RecurringTaskCompletion
	TaskTitle string
}

// CompletionRepository handles the append-only completion log.
type CompletionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

func (r *CompletionRepository) Create(ctx context.Context, completion *model.RecurringTaskCompletion) error {
	if err := r.db.WithContext(ctx).Create(completion).Error; err != nil {
		return fmt.Errorf("create completion: %w", err)
	}
	return nil
}

// ListByTask returns every completion recorded for a task, oldest first
// by completion time.
func (r *CompletionRepository) ListByTask(ctx context.Context, taskID uint) ([]model.RecurringTaskCompletion, error) {
	var completions []model.RecurringTaskCompletion
	if err := r.db.WithContext(ctx).
		Where("recurring_task_id = ?", taskID).
		Order("completed_at ASC").
		Find(&completions).Error; err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return completions, nil
}

// ListRecent returns the newest completions across all tasks, joined with
// the owning task's title, capped at limit.
func (r *CompletionRepository) ListRecent(ctx context.Context, limit int) ([]RecentCompletion, error) {
	var rows []RecentCompletion
	if err := r.db.WithContext(ctx).
		Table("recurring_task_completions").
		Select("recurring_task_completions.*, recurring_tasks.task_title AS task_title").
		Joins("LEFT JOIN recurring_tasks ON recurring_tasks.id = recurring_task_completions.recurring_task_id").
		Order("recurring_task_completions.completed_at DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list recent completions: %w", err)
	}
	return rows, nil
}

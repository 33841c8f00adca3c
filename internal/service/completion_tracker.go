package service

import (
	"context"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// CompletionTracker records fulfilled occurrences and serves reporting
// queries. The log is append-only; there is no update or delete.
type CompletionTracker struct {
	completionRepo *repository.CompletionRepository
	taskRepo       *repository.TaskRepository
}

func NewCompletionTracker(completionRepo *repository.CompletionRepository, taskRepo *repository.TaskRepository) *CompletionTracker {
	return &CompletionTracker{completionRepo: completionRepo, taskRepo: taskRepo}
}

// RecordCompletion stores one immutable completion row for the given
// occurrence of a task. The task must still exist.
func (t *CompletionTracker) RecordCompletion(ctx context.Context, taskID uint, scheduledAt time.Time, completedBy int64, completedByName string, completedAt time.Time) (*model.RecurringTaskCompletion, error) {
	if _, err := t.taskRepo.FindByID(ctx, taskID); err != nil {
		return nil, err
	}

	completion := model.RecurringTaskCompletion{
		RecurringTaskID: taskID,
		ScheduledAt:     scheduledAt,
		CompletedBy:     completedBy,
		CompletedByName: completedByName,
		CompletedAt:     completedAt,
	}
	if err := t.completionRepo.Create(ctx, &completion); err != nil {
		return nil, err
	}
	return &completion, nil
}

// CompletionsForTask returns a task's completions ordered by completion
// time, oldest first.
func (t *CompletionTracker) CompletionsForTask(ctx context.Context, taskID uint) ([]model.RecurringTaskCompletion, error) {
	return t.completionRepo.ListByTask(ctx, taskID)
}

// RecentCompletions returns the newest completions across all tasks with
// the owning task's title, capped at limit.
func (t *CompletionTracker) RecentCompletions(ctx context.Context, limit int) ([]repository.RecentCompletion, error) {
	return t.completionRepo.ListRecent(ctx, limit)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/model"
)

// TaskRepository handles persistence of recurring task definitions.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.RecurringTask) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create recurring task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.RecurringTask, error) {
	var task model.RecurringTask
	err := r.db.WithContext(ctx).First(&task, id).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("find recurring task: %w", err)
	}
}

func (r *TaskRepository) ListAll(ctx context.Context) ([]model.RecurringTask, error) {
	var tasks []model.RecurringTask
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) ListByChat(ctx context.Context, chatID int64) ([]model.RecurringTask, error) {
	var tasks []model.RecurringTask
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list recurring tasks for chat: %w", err)
	}
	return tasks, nil
}

// ListDue returns active tasks whose next send time is at or before now.
func (r *TaskRepository) ListDue(ctx context.Context, now time.Time) ([]model.RecurringTask, error) {
	var tasks []model.RecurringTask
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND next_send_at <= ?", true, now).
		Order("next_send_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	return tasks, nil
}

// Update applies a partial set of column changes to one task.
func (r *TaskRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.RecurringTask{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update recurring task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reschedule advances a task after a successful dispatch. occurredAt is the
// occurrence instant just dispatched; sentAt is the delivery wall-clock time.
func (r *TaskRepository) Reschedule(ctx context.Context, id uint, nextSendAt, occurredAt, sentAt time.Time) error {
	return r.Update(ctx, id, map[string]interface{}{
		"next_send_at":      nextSendAt,
		"last_scheduled_at": occurredAt,
		"last_sent_at":      sentAt,
	})
}

// Delete removes a task definition. Completions referencing it are kept
// for historical reporting.
func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.RecurringTask{}, id).Error; err != nil {
		return fmt.Errorf("delete recurring task: %w", err)
	}
	return nil
}

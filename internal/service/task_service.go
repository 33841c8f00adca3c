package service

import (
	"context"
	"fmt"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/recurrence"
	"taskhub/internal/repository"
)

// TaskInput represents data required to create a recurring task.
type TaskInput struct {
	Title           string
	ChatID          int64
	CreatorID       int64
	AssigneeID      int64
	AssigneeMention string
	Frequency       string
	Hour            int
	Minute          int
	DayOfWeek       *int
	DayOfMonth      *int
	ExcludeDays     string
}

// TaskService wraps recurring-task management. All rule validation happens
// here, at write time; the dispatcher assumes stored rules are valid.
type TaskService struct {
	taskRepo *repository.TaskRepository
	loc      *time.Location
}

func NewTaskService(taskRepo *repository.TaskRepository, loc *time.Location) *TaskService {
	return &TaskService{taskRepo: taskRepo, loc: loc}
}

// Create validates the recurrence rule and stores the task with its first
// occurrence computed from now.
func (s *TaskService) Create(ctx context.Context, input TaskInput, now time.Time) (*model.RecurringTask, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	sched, err := recurrence.Parse(input.Frequency, input.Hour, input.Minute, input.DayOfWeek, input.DayOfMonth, input.ExcludeDays)
	if err != nil {
		return nil, err
	}
	if daily, ok := sched.(recurrence.Daily); ok {
		// Store exclusions in canonical ascending order.
		input.ExcludeDays = recurrence.EncodeExcludeDays(daily.Exclude)
	}

	task := model.RecurringTask{
		CreatorID:       input.CreatorID,
		AssigneeID:      input.AssigneeID,
		AssigneeMention: input.AssigneeMention,
		ChatID:          input.ChatID,
		TaskTitle:       input.Title,
		Frequency:       input.Frequency,
		Hour:            input.Hour,
		Minute:          input.Minute,
		DayOfWeek:       input.DayOfWeek,
		DayOfMonth:      input.DayOfMonth,
		ExcludeDays:     input.ExcludeDays,
		IsActive:        true,
		NextSendAt:      sched.Next(now, s.loc),
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Get(ctx context.Context, id uint) (*model.RecurringTask, error) {
	return s.taskRepo.FindByID(ctx, id)
}

func (s *TaskService) List(ctx context.Context) ([]model.RecurringTask, error) {
	return s.taskRepo.ListAll(ctx)
}

func (s *TaskService) ListByChat(ctx context.Context, chatID int64) ([]model.RecurringTask, error) {
	return s.taskRepo.ListByChat(ctx, chatID)
}

// UpdateRule replaces a task's recurrence rule and recomputes the next
// occurrence from now. Fields irrelevant to the new frequency are cleared.
func (s *TaskService) UpdateRule(ctx context.Context, id uint, frequency string, hour, minute int, dayOfWeek, dayOfMonth *int, excludeDays string, now time.Time) (*model.RecurringTask, error) {
	sched, err := recurrence.Parse(frequency, hour, minute, dayOfWeek, dayOfMonth, excludeDays)
	if err != nil {
		return nil, err
	}
	if daily, ok := sched.(recurrence.Daily); ok {
		excludeDays = recurrence.EncodeExcludeDays(daily.Exclude)
	}

	fields := map[string]interface{}{
		"frequency":    frequency,
		"hour":         hour,
		"minute":       minute,
		"day_of_week":  dayOfWeek,
		"day_of_month": dayOfMonth,
		"exclude_days": excludeDays,
		"next_send_at": sched.Next(now, s.loc),
	}
	if err := s.taskRepo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.taskRepo.FindByID(ctx, id)
}

// SetActive pauses or resumes a task. Paused tasks never appear in due
// queries and their schedule does not advance.
func (s *TaskService) SetActive(ctx context.Context, id uint, active bool) error {
	return s.taskRepo.Update(ctx, id, map[string]interface{}{"is_active": active})
}

// Delete removes a task definition; future dispatch stops immediately.
func (s *TaskService) Delete(ctx context.Context, id uint) error {
	if _, err := s.taskRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.taskRepo.Delete(ctx, id)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskhub/internal/recurrence"
	"taskhub/internal/repository"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.NewDB(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

func weeklyInput() TaskInput {
	day := 1
	return TaskInput{
		Title:           "weekly report",
		ChatID:          42,
		CreatorID:       7,
		AssigneeID:      7,
		AssigneeMention: "@sam",
		Frequency:       recurrence.FreqWeekly,
		Hour:            14,
		Minute:          30,
		DayOfWeek:       &day,
	}
}

func TestTaskServiceCreate_ComputesFirstOccurrence(t *testing.T) {
	svc := NewTaskService(repository.NewTaskRepository(testDB(t)), opLoc)
	now := time.Date(2025, 6, 9, 6, 0, 0, 0, time.UTC) // Monday 14:00 local

	task, err := svc.Create(context.Background(), weeklyInput(), now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !task.IsActive {
		t.Fatal("new tasks should be active")
	}
	// Same Monday, 14:30 local.
	want := time.Date(2025, 6, 9, 6, 30, 0, 0, time.UTC)
	if !task.NextSendAt.Equal(want) {
		t.Fatalf("expected first occurrence %v, got %v", want, task.NextSendAt)
	}
	if task.LastSentAt != nil {
		t.Fatalf("LastSentAt should be unset at creation, got %v", task.LastSentAt)
	}
}

func TestTaskServiceCreate_RejectsInvalidRule(t *testing.T) {
	svc := NewTaskService(repository.NewTaskRepository(testDB(t)), opLoc)

	input := weeklyInput()
	input.DayOfWeek = nil
	if _, err := svc.Create(context.Background(), input, time.Now().UTC()); !errors.Is(err, recurrence.ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}

	input = weeklyInput()
	input.Hour = 24
	if _, err := svc.Create(context.Background(), input, time.Now().UTC()); !errors.Is(err, recurrence.ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}

	input = weeklyInput()
	input.Title = ""
	if _, err := svc.Create(context.Background(), input, time.Now().UTC()); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestTaskServiceUpdateRule_SwitchesFrequencyAndReschedules(t *testing.T) {
	repo := repository.NewTaskRepository(testDB(t))
	svc := NewTaskService(repo, opLoc)
	ctx := context.Background()

	now := time.Date(2025, 6, 9, 6, 0, 0, 0, time.UTC)
	task, err := svc.Create(ctx, weeklyInput(), now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	day := 15
	later := now.Add(time.Hour)
	updated, err := svc.UpdateRule(ctx, task.ID, recurrence.FreqMonthly, 10, 0, nil, &day, "", later)
	if err != nil {
		t.Fatalf("update rule: %v", err)
	}
	if updated.Frequency != recurrence.FreqMonthly || updated.DayOfMonth == nil || *updated.DayOfMonth != 15 {
		t.Fatalf("rule not switched: %+v", updated)
	}
	if updated.DayOfWeek != nil {
		t.Fatalf("stale weekly field survived the switch: %v", *updated.DayOfWeek)
	}
	// 2025-06-15 10:00 local.
	want := time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC)
	if !updated.NextSendAt.Equal(want) {
		t.Fatalf("expected rescheduled occurrence %v, got %v", want, updated.NextSendAt)
	}
}

func TestTaskServiceUpdateRule_RejectsInvalidRule(t *testing.T) {
	repo := repository.NewTaskRepository(testDB(t))
	svc := NewTaskService(repo, opLoc)
	ctx := context.Background()

	task, err := svc.Create(ctx, weeklyInput(), time.Now().UTC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateRule(ctx, task.ID, recurrence.FreqMonthly, 10, 0, nil, nil, "", time.Now().UTC()); !errors.Is(err, recurrence.ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
}

func TestTaskServiceSetActive_PausedTasksAreNotDue(t *testing.T) {
	repo := repository.NewTaskRepository(testDB(t))
	svc := NewTaskService(repo, opLoc)
	ctx := context.Background()

	now := time.Date(2025, 6, 9, 6, 0, 0, 0, time.UTC)
	task, err := svc.Create(ctx, weeklyInput(), now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.SetActive(ctx, task.ID, false); err != nil {
		t.Fatalf("pause: %v", err)
	}

	due, err := repo.ListDue(ctx, task.NextSendAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("paused task should not be due, got %d", len(due))
	}

	if err := svc.SetActive(ctx, task.ID, true); err != nil {
		t.Fatalf("resume: %v", err)
	}
	due, err = repo.ListDue(ctx, task.NextSendAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("resumed task should be due, got %d", len(due))
	}
}

func TestTaskServiceDelete_UnknownTask(t *testing.T) {
	svc := NewTaskService(repository.NewTaskRepository(testDB(t)), opLoc)

	if err := svc.Delete(context.Background(), 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskhub/internal/model"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

func newTask(title string, nextSendAt time.Time, active bool) *model.RecurringTask {
	return &model.RecurringTask{
		CreatorID:       1,
		AssigneeID:      1,
		AssigneeMention: "@someone",
		ChatID:          42,
		TaskTitle:       title,
		Frequency:       "daily",
		Hour:            9,
		Minute:          30,
		IsActive:        active,
		NextSendAt:      nextSendAt,
	}
}

func TestTaskRepository_CreateAndFind(t *testing.T) {
	repo := NewTaskRepository(testDB(t))
	ctx := context.Background()

	task := newTask("water the plants", time.Date(2025, 6, 9, 1, 30, 0, 0, time.UTC), true)
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected an id to be assigned")
	}

	found, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.TaskTitle != "water the plants" || found.Frequency != "daily" {
		t.Fatalf("unexpected task %+v", found)
	}
	if !found.NextSendAt.Equal(task.NextSendAt) {
		t.Fatalf("expected NextSendAt %v, got %v", task.NextSendAt, found.NextSendAt)
	}
}

func TestTaskRepository_CreateKeepsInactiveFlag(t *testing.T) {
	repo := NewTaskRepository(testDB(t))
	ctx := context.Background()

	task := newTask("created paused", time.Date(2025, 6, 9, 1, 30, 0, 0, time.UTC), false)
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.IsActive {
		t.Fatal("task created with IsActive=false came back active")
	}
}

func TestTaskRepository_FindUnknownReturnsNotFound(t *testing.T) {
	repo := NewTaskRepository(testDB(t))

	_, err := repo.FindByID(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskRepository_ListDue(t *testing.T) {
	repo := NewTaskRepository(testDB(t))
	ctx := context.Background()
	now := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)

	due := newTask("due", now.Add(-time.Hour), true)
	exact := newTask("due exactly now", now, true)
	future := newTask("future", now.Add(time.Hour), true)
	paused := newTask("paused", now.Add(-time.Hour), false)
	for _, task := range []*model.RecurringTask{due, exact, future, paused} {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := repo.ListDue(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 due tasks, got %d", len(got))
	}
	for _, task := range got {
		if task.TaskTitle == "future" || task.TaskTitle == "paused" {
			t.Fatalf("task %q should not be due", task.TaskTitle)
		}
	}
}

func TestTaskRepository_Reschedule(t *testing.T) {
	repo := NewTaskRepository(testDB(t))
	ctx := context.Background()

	prev := time.Date(2025, 6, 9, 1, 30, 0, 0, time.UTC)
	task := newTask("water the plants", prev, true)
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	next := prev.AddDate(0, 0, 1)
	sentAt := prev.Add(time.Minute)
	if err := repo.Reschedule(ctx, task.ID, next, prev, sentAt); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	found, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !found.NextSendAt.Equal(next) {
		t.Fatalf("expected NextSendAt %v, got %v", next, found.NextSendAt)
	}
	if found.LastScheduledAt == nil || !found.LastScheduledAt.Equal(prev) {
		t.Fatalf("expected LastScheduledAt %v, got %v", prev, found.LastScheduledAt)
	}
	if found.LastSentAt == nil || !found.LastSentAt.Equal(sentAt) {
		t.Fatalf("expected LastSentAt %v, got %v", sentAt, found.LastSentAt)
	}
}

func TestTaskRepository_UpdateUnknownReturnsNotFound(t *testing.T) {
	repo := NewTaskRepository(testDB(t))

	err := repo.Update(context.Background(), 999, map[string]interface{}{"is_active": false})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskRepository_DeleteHidesTaskFromDueQueries(t *testing.T) {
	repo := NewTaskRepository(testDB(t))
	ctx := context.Background()
	now := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)

	task := newTask("short lived", now.Add(-time.Hour), true)
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := repo.FindByID(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	due, err := repo.ListDue(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("deleted task still due: %+v", due)
	}
}

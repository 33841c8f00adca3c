package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"taskhub/internal/model"
)

// DispatchStore is the slice of task persistence the dispatcher needs.
type DispatchStore interface {
	ListDue(ctx context.Context, now time.Time) ([]model.RecurringTask, error)
	Reschedule(ctx context.Context, id uint, nextSendAt, occurredAt, sentAt time.Time) error
}

// Notifier delivers one reminder to its chat. Implementations must be safe
// to call again for the same occurrence: delivery is at-least-once and a
// failed tick retries on the next one.
type Notifier interface {
	SendReminder(ctx context.Context, chatID int64, mention, title string) error
}

// Dispatcher polls for due recurring tasks and sends their reminders.
// It is the only writer of NextSendAt after task creation; run a single
// instance, since the read-then-write per task is not compare-and-swap.
type Dispatcher struct {
	store    DispatchStore
	notifier Notifier
	loc      *time.Location
	log      zerolog.Logger
}

func NewDispatcher(store DispatchStore, notifier Notifier, loc *time.Location, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		notifier: notifier,
		loc:      loc,
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
}

// Tick processes every task due at now. Task failures are isolated: one
// task's delivery or persistence error never blocks the rest. Only a store
// failure on the due-task query aborts the whole tick; the cycle is simply
// retried on the next tick with task state untouched.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) error {
	due, err := d.store.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("query due tasks: %w", err)
	}

	for _, task := range due {
		if err := d.dispatch(ctx, task, now); err != nil {
			d.log.Error().Err(err).Uint("task_id", task.ID).Str("title", task.TaskTitle).Msg("dispatch failed")
			continue
		}
		d.log.Info().Uint("task_id", task.ID).Str("title", task.TaskTitle).Msg("reminder sent")
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, task model.RecurringTask, now time.Time) error {
	sched, err := task.Schedule()
	if err != nil {
		// Rules are validated on create/update, so this is corrupted data.
		// Leave the row alone and keep the loop alive.
		return fmt.Errorf("parse schedule: %w", err)
	}

	if err := d.notifier.SendReminder(ctx, task.ChatID, task.AssigneeMention, task.TaskTitle); err != nil {
		// NextSendAt stays as it was, so the task is due again next tick.
		return fmt.Errorf("send reminder: %w", err)
	}

	// Anchor the next occurrence on the previous one, not on the clock, so
	// a delayed tick does not drift the schedule across cycles.
	next := sched.Next(task.NextSendAt, d.loc)
	if !next.After(now) {
		// The task missed more than one cycle (downtime). One reminder has
		// fired for the whole gap; realign with the clock instead of
		// replaying every missed occurrence.
		next = sched.Next(now, d.loc)
	}

	// task.NextSendAt still holds the occurrence just dispatched; persist it
	// as the cycle identity completions answer to.
	if err := d.store.Reschedule(ctx, task.ID, next, task.NextSendAt, now); err != nil {
		return fmt.Errorf("reschedule: %w", err)
	}
	return nil
}

package model

import (
	"time"

	"taskhub/internal/recurrence"
)

// RecurringTask is a reminder that fires on a recurrence schedule.
// NextSendAt is the authoritative due instant, always produced by the
// recurrence calculator; LastSentAt is observability only and never feeds
// back into scheduling.
type RecurringTask struct {
	ID              uint  `gorm:"primaryKey"`
	CreatorID       int64 `gorm:"index"`
	AssigneeID      int64
	AssigneeMention string
	ChatID          int64 `gorm:"index"`
	TaskTitle       string
	Frequency       string // daily | weekly | monthly
	Hour            int
	Minute          int
	DayOfWeek       *int      // weekly only, 0 = Sunday
	DayOfMonth      *int      // monthly only, 1-31
	ExcludeDays     string    // daily only, comma-joined weekday numbers
	IsActive        bool      `gorm:"index"`
	NextSendAt      time.Time `gorm:"index"`
	LastScheduledAt *time.Time // occurrence instant of the most recent dispatch
	LastSentAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Schedule parses the task's persisted recurrence fields. Tasks are
// validated on create/update, so an error here means corrupted data.
func (t *RecurringTask) Schedule() (recurrence.Schedule, error) {
	return recurrence.Parse(t.Frequency, t.Hour, t.Minute, t.DayOfWeek, t.DayOfMonth, t.ExcludeDays)
}

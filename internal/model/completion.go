package model

import "time"

// RecurringTaskCompletion records that one occurrence of a recurring task
// was fulfilled. Rows are append-only and survive deletion of the task they
// reference, for historical reporting.
type RecurringTaskCompletion struct {
	ID              uint `gorm:"primaryKey"`
	RecurringTaskID uint `gorm:"index"`
	ScheduledAt     time.Time // the occurrence this completion answers
	CompletedBy     int64
	CompletedByName string
	CompletedAt     time.Time `gorm:"index"`
	CreatedAt       time.Time
}

// Package recurrence models how often a recurring task fires and computes
// occurrence times. All wall-clock arithmetic happens in a caller-supplied
// operational timezone so results do not depend on the host's locale.
package recurrence

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Schedule is one recurrence pattern. Each variant carries only the fields
// that matter for its frequency.
type Schedule interface {
	// Next returns the first occurrence strictly after now, in UTC.
	// Wall-clock fields (hour, weekday, day of month) are interpreted in loc.
	Next(now time.Time, loc *time.Location) time.Time
	// Describe renders the schedule as a short human-readable string.
	Describe() string
	// Validate reports whether the schedule's fields are well-formed.
	Validate() error
}

// Daily fires every day at Hour:Minute, skipping weekdays in Exclude.
type Daily struct {
	Hour    int
	Minute  int
	Exclude []time.Weekday
}

// Weekly fires once a week on Weekday at Hour:Minute.
type Weekly struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// Monthly fires once a month on Day at Hour:Minute. If Day exceeds the
// length of a month, the occurrence is clamped to that month's last day.
type Monthly struct {
	Day    int
	Hour   int
	Minute int
}

func (d Daily) Next(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	cand := time.Date(local.Year(), local.Month(), local.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !cand.After(now) {
		cand = cand.AddDate(0, 0, 1)
	}
	// Re-check after every single-day advance so runs of consecutive
	// excluded days are skipped one at a time.
	for d.excluded(cand.Weekday()) {
		cand = cand.AddDate(0, 0, 1)
	}
	return cand.UTC()
}

func (d Daily) excluded(day time.Weekday) bool {
	for _, ex := range d.Exclude {
		if ex == day {
			return true
		}
	}
	return false
}

func (w Weekly) Next(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	cand := time.Date(local.Year(), local.Month(), local.Day(), w.Hour, w.Minute, 0, 0, loc)
	days := int(w.Weekday - local.Weekday())
	if days < 0 || (days == 0 && !cand.After(now)) {
		days += 7
	}
	return cand.AddDate(0, 0, days).UTC()
}

func (m Monthly) Next(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	cand := monthlyCandidate(local.Year(), local.Month(), m.Day, m.Hour, m.Minute, loc)
	if !cand.After(now) {
		cand = monthlyCandidate(local.Year(), local.Month()+1, m.Day, m.Hour, m.Minute, loc)
	}
	return cand.UTC()
}

func monthlyCandidate(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

// daysIn returns the number of days in the given month. Day zero of the
// following month normalizes to the last day of this one; time.Date also
// normalizes an out-of-range month, so month+1 in December is safe.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Daily) Describe() string {
	s := fmt.Sprintf("%s daily", clock(d.Hour, d.Minute))
	if len(d.Exclude) == 0 {
		return s
	}
	names := make([]string, 0, len(d.Exclude))
	for _, day := range sortedWeekdays(d.Exclude) {
		names = append(names, day.String())
	}
	return s + ", except " + strings.Join(names, ", ")
}

func (w Weekly) Describe() string {
	return fmt.Sprintf("%s %s", w.Weekday, clock(w.Hour, w.Minute))
}

func (m Monthly) Describe() string {
	return fmt.Sprintf("day %d of the month, %s", m.Day, clock(m.Hour, m.Minute))
}

// clock renders H:MM with a zero-padded minute and an unpadded hour.
func clock(hour, minute int) string {
	return fmt.Sprintf("%d:%02d", hour, minute)
}

func sortedWeekdays(days []time.Weekday) []time.Weekday {
	out := make([]time.Weekday, len(days))
	copy(out, days)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

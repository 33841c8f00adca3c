package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency literals as persisted.
const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
)

// ErrInvalidRule marks a malformed recurrence rule. It is raised when a rule
// is created or updated, never at dispatch time.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Parse builds a Schedule from the flat persisted encoding: a frequency
// literal, an hour and minute, the frequency-specific day fields (nil when
// irrelevant) and a comma-joined list of excluded weekday numbers.
func Parse(frequency string, hour, minute int, dayOfWeek, dayOfMonth *int, excludeDays string) (Schedule, error) {
	var sched Schedule
	switch frequency {
	case FreqDaily:
		exclude, err := parseExcludeDays(excludeDays)
		if err != nil {
			return nil, err
		}
		sched = Daily{Hour: hour, Minute: minute, Exclude: exclude}
	case FreqWeekly:
		if dayOfWeek == nil {
			return nil, fmt.Errorf("%w: weekly rule requires a day of week", ErrInvalidRule)
		}
		sched = Weekly{Weekday: time.Weekday(*dayOfWeek), Hour: hour, Minute: minute}
	case FreqMonthly:
		if dayOfMonth == nil {
			return nil, fmt.Errorf("%w: monthly rule requires a day of month", ErrInvalidRule)
		}
		sched = Monthly{Day: *dayOfMonth, Hour: hour, Minute: minute}
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, frequency)
	}
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	return sched, nil
}

func parseExcludeDays(raw string) ([]time.Weekday, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("%w: exclude day %q out of range 0-6", ErrInvalidRule, strings.TrimSpace(part))
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

// EncodeExcludeDays is the inverse of the exclude-day parsing: weekday
// numbers in ascending order, comma-joined. Empty input encodes to "".
func EncodeExcludeDays(days []time.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, 0, len(days))
	for _, day := range sortedWeekdays(days) {
		parts = append(parts, strconv.Itoa(int(day)))
	}
	return strings.Join(parts, ",")
}

func (d Daily) Validate() error {
	if err := validClock(d.Hour, d.Minute); err != nil {
		return err
	}
	seen := make(map[time.Weekday]bool, len(d.Exclude))
	for _, day := range d.Exclude {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("%w: exclude day %d out of range 0-6", ErrInvalidRule, day)
		}
		seen[day] = true
	}
	if len(seen) == 7 {
		return fmt.Errorf("%w: all weekdays excluded", ErrInvalidRule)
	}
	return nil
}

func (w Weekly) Validate() error {
	if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
		return fmt.Errorf("%w: day of week %d out of range 0-6", ErrInvalidRule, w.Weekday)
	}
	return validClock(w.Hour, w.Minute)
}

func (m Monthly) Validate() error {
	if m.Day < 1 || m.Day > 31 {
		return fmt.Errorf("%w: day of month %d out of range 1-31", ErrInvalidRule, m.Day)
	}
	return validClock(m.Hour, m.Minute)
}

func validClock(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour %d out of range 0-23", ErrInvalidRule, hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("%w: minute %d out of range 0-59", ErrInvalidRule, minute)
	}
	return nil
}

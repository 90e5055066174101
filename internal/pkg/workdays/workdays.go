// Package workdays implements the working-day calendar used for evaluation
// deadlines. Sunday is the single non-working weekday; every other calendar
// day counts as a working day.
package workdays

import (
	"fmt"
	"time"
)

// NonWorkingDay is the one weekday skipped by the calendar.
const NonWorkingDay = time.Sunday

// EvaluationPeriod is the number of working days an evaluator gets to finish
// a copy, counted from the day evaluation started (that day is day 1).
const EvaluationPeriod = 7

// Date truncates t to its calendar date in UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextWorkingDay returns the first working day strictly after date.
func NextWorkingDay(date time.Time) time.Time {
	next := date.AddDate(0, 0, 1)
	for next.Weekday() == NonWorkingDay {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// DateAfterWorkingDays returns the date reached by counting workingDays
// working days starting at start, with start itself counted as day 1.
func DateAfterWorkingDays(start time.Time, workingDays int) time.Time {
	current := start
	for i := 1; i < workingDays; i++ {
		current = NextWorkingDay(current)
	}
	return current
}

// DueDate returns the evaluation due date for a copy whose evaluation began
// at start.
func DueDate(start time.Time) time.Time {
	return DateAfterWorkingDays(Date(start), EvaluationPeriod)
}

// DaysRemaining returns the whole-day difference between the due date for
// start and today. Negative values mean the copy is overdue.
func DaysRemaining(start, today time.Time) int {
	diff := DueDate(start).Sub(Date(today))
	return int(diff.Hours() / 24)
}

// DueLabel renders the remaining/overdue description shown to callers.
func DueLabel(daysRemaining int) string {
	switch {
	case daysRemaining > 0:
		return fmt.Sprintf("Due in %d days", daysRemaining)
	case daysRemaining == 0:
		return "Due Today"
	default:
		return fmt.Sprintf("Overdue by %d days", -daysRemaining)
	}
}

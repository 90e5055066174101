package workdays_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evaldesk/copyflow/internal/pkg/workdays"
)

func Test_NextWorkingDay_SkipsSunday(t *testing.T) {
	// arrange - 2024-03-16 is a Saturday
	saturday := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)

	// act
	next := workdays.NextWorkingDay(saturday)

	// assert - Sunday is skipped, Monday comes next
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), next)
}

func Test_NextWorkingDay_NeverReturnsNonWorkingDay(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 366; i++ {
		next := workdays.NextWorkingDay(day)
		assert.NotEqual(t, workdays.NonWorkingDay, next.Weekday())
		assert.True(t, next.After(day))
		day = day.AddDate(0, 0, 1)
	}
}

func Test_DateAfterWorkingDays_OneDayIsIdentity(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 60; i++ {
		assert.Equal(t, day, workdays.DateAfterWorkingDays(day, 1))
		day = day.AddDate(0, 0, 1)
	}
}

func Test_DateAfterWorkingDays_SevenDaysSpansAtLeastSixCalendarDays(t *testing.T) {
	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 60; i++ {
		after := workdays.DateAfterWorkingDays(day, 7)
		elapsed := int(after.Sub(day).Hours() / 24)
		assert.GreaterOrEqual(t, elapsed, 6)
		day = day.AddDate(0, 0, 1)
	}
}

func Test_DueDate_SevenWorkingDaysFromStart(t *testing.T) {
	// arrange - Friday 2024-03-15; one Sunday intervenes before day 7
	start := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	// act
	due := workdays.DueDate(start)

	// assert - Fri 15, Sat 16, Mon 18, Tue 19, Wed 20, Thu 21, Fri 22
	assert.Equal(t, time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), due)
}

func Test_DaysRemaining_CountsWholeDays(t *testing.T) {
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) // due 2024-03-22

	assert.Equal(t, 7, workdays.DaysRemaining(start, time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, workdays.DaysRemaining(start, time.Date(2024, 3, 22, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, -2, workdays.DaysRemaining(start, time.Date(2024, 3, 24, 12, 0, 0, 0, time.UTC)))
}

func Test_DueLabel(t *testing.T) {
	assert.Equal(t, "Due in 3 days", workdays.DueLabel(3))
	assert.Equal(t, "Due in 1 days", workdays.DueLabel(1))
	assert.Equal(t, "Due Today", workdays.DueLabel(0))
	assert.Equal(t, "Overdue by 2 days", workdays.DueLabel(-2))
}

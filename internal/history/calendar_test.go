package history

import (
	"testing"
	"time"

	"github.com/2beens/gymbook/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, id int, date, day string, duration int64) entity.WorkoutHistory {
	t.Helper()
	ts, err := entity.ParseTimestamp(date)
	require.NoError(t, err)
	return entity.WorkoutHistory{ID: id, Date: ts, Day: day, Duration: duration}
}

func TestComputeStats(t *testing.T) {
	stats := computeStats(nil)
	assert.Equal(t, Stats{MostActiveDay: "N/A"}, stats)

	records := []entity.WorkoutHistory{
		record(t, 1, "2024-03-05T07:00:00", "Tuesday", 3600000),
		record(t, 2, "2024-03-07T07:00:00", "Thursday", 1800000),
		record(t, 3, "2024-03-12T07:00:00", "Tuesday", 1800000),
		record(t, 4, "2024-03-14T07:00:00", "Thursday", 600000),
	}
	stats = computeStats(records)
	assert.Equal(t, 4, stats.TotalWorkouts)
	assert.Equal(t, int64(7800000), stats.TotalDuration)
	assert.InDelta(t, 1950000.0, stats.AverageDuration, 0.001)
	// tie between Tuesday and Thursday goes to the first seen
	assert.Equal(t, "Tuesday", stats.MostActiveDay)

	records = append(records, record(t, 5, "2024-03-21T07:00:00", "Thursday", 600000))
	assert.Equal(t, "Thursday", computeStats(records).MostActiveDay)
}

func TestComputeCalendar(t *testing.T) {
	calendar := computeCalendar([]entity.WorkoutHistory{
		record(t, 1, "2024-03-05T07:00:00", "Tuesday", 1000),
		record(t, 2, "2024-03-05T23:30:00+02:00", "Tuesday", 2000),
		record(t, 3, "2024-03-06", "Wednesday", 500),
	})

	assert.Equal(t, map[string]DayActivity{
		"2024-03-05": {Count: 2, Duration: 3000},
		"2024-03-06": {Count: 1, Duration: 500},
	}, calendar)
}

func TestMonthGrid(t *testing.T) {
	today := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	calendar := map[string]DayActivity{"2024-03-05": {Count: 1, Duration: 1000}}

	// March 2024 starts on Friday and ends on Sunday
	grid := MonthGrid(2, 2024, calendar, today)
	require.Len(t, grid, 42)
	assert.Equal(t, "2024-02-25", grid[0].Date)
	assert.False(t, grid[0].InMonth)
	assert.Equal(t, "2024-03-01", grid[5].Date)
	assert.True(t, grid[5].InMonth)
	assert.Equal(t, "2024-04-06", grid[41].Date)
	assert.False(t, grid[41].InMonth)

	var todays []GridDay
	for _, d := range grid {
		if d.IsToday {
			todays = append(todays, d)
		}
	}
	require.Len(t, todays, 1)
	assert.Equal(t, 5, todays[0].Day)
	require.NotNil(t, todays[0].Activity)
	assert.Equal(t, 1, todays[0].Activity.Count)

	// August 2026 starts on Saturday and ends on Monday
	grid = MonthGrid(7, 2026, nil, today)
	assert.Len(t, grid, 42)
	assert.Equal(t, "2026-07-26", grid[0].Date)

	// February 2015 fits exactly in four weeks
	grid = MonthGrid(1, 2015, nil, today)
	assert.Len(t, grid, 28)
	for _, d := range grid {
		assert.True(t, d.InMonth)
		assert.Nil(t, d.Activity)
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1h 5m", FormatDuration(3900000))
	assert.Equal(t, "3m 20s", FormatDuration(200000))
	assert.Equal(t, "0m 0s", FormatDuration(0))
	assert.Equal(t, "25h 0m", FormatDuration(90000000))

	assert.Equal(t, "Tue, Mar 5", FormatDate(record(t, 1, "2024-03-05T07:00:00", "Tuesday", 0).Date))
	assert.Empty(t, FormatDate(entity.Timestamp{}))

	assert.Equal(t, "January", MonthName(0))
	assert.Equal(t, "December", MonthName(11))
	assert.Empty(t, MonthName(12))
}

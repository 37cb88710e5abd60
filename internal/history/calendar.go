package history

import (
	"time"

	"github.com/2beens/gymbook/internal/entity"
)

const dateKeyLayout = "2006-01-02"

type DayActivity struct {
	Count    int   `json:"count"`
	Duration int64 `json:"duration"`
}

// Stats are computed over the whole history, not the month filter.
type Stats struct {
	TotalWorkouts   int     `json:"totalWorkouts"`
	TotalDuration   int64   `json:"totalDuration"`
	AverageDuration float64 `json:"averageWorkoutTime"`
	MostActiveDay   string  `json:"mostActiveDay"`
}

const noActiveDay = "N/A"

func computeStats(records []entity.WorkoutHistory) Stats {
	if len(records) == 0 {
		return Stats{MostActiveDay: noActiveDay}
	}

	stats := Stats{TotalWorkouts: len(records)}

	// day labels in first-seen order, so ties go to the earliest record
	var days []string
	dayCount := map[string]int{}
	for _, r := range records {
		stats.TotalDuration += r.Duration
		if _, seen := dayCount[r.Day]; !seen {
			days = append(days, r.Day)
		}
		dayCount[r.Day]++
	}
	stats.AverageDuration = float64(stats.TotalDuration) / float64(stats.TotalWorkouts)

	maxCount := 0
	stats.MostActiveDay = noActiveDay
	for _, day := range days {
		if dayCount[day] > maxCount {
			maxCount = dayCount[day]
			stats.MostActiveDay = day
		}
	}

	return stats
}

// computeCalendar keys activity by the date part of each stored timestamp.
func computeCalendar(records []entity.WorkoutHistory) map[string]DayActivity {
	calendar := make(map[string]DayActivity, len(records))
	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		key := r.Date.DateKey()
		activity := calendar[key]
		activity.Count++
		activity.Duration += r.Duration
		calendar[key] = activity
	}
	return calendar
}

type GridDay struct {
	Date     string       `json:"date"`
	Day      int          `json:"day"`
	InMonth  bool         `json:"inMonth"`
	IsToday  bool         `json:"isToday"`
	Activity *DayActivity `json:"activity,omitempty"`
}

// MonthGrid lays out a 0-based month as whole Sunday-first weeks, padded with
// the tail of the previous month and the head of the next one.
func MonthGrid(month, year int, calendar map[string]DayActivity, today time.Time) []GridDay {
	first := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	todayKey := today.Format(dateKeyLayout)

	var grid []GridDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateKeyLayout)
		day := GridDay{
			Date:    key,
			Day:     d.Day(),
			InMonth: d.Month() == first.Month() && d.Year() == first.Year(),
			IsToday: key == todayKey,
		}
		if activity, ok := calendar[key]; ok {
			day.Activity = &activity
		}
		grid = append(grid, day)
	}

	return grid
}

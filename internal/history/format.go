package history

import (
	"fmt"
	"time"

	"github.com/2beens/gymbook/internal/entity"
)

var Months = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English name of a 0-based month.
func MonthName(month int) string {
	if month < 0 || month > 11 {
		return ""
	}
	return Months[month]
}

// FormatDuration renders milliseconds as "1h 5m", or "3m 20s" below an hour.
func FormatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	hours := int64(d / time.Hour)
	minutes := int64(d/time.Minute) % 60
	seconds := int64(d/time.Second) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// FormatDate renders a workout date as "Mon, Jan 2".
func FormatDate(ts entity.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format("Mon, Jan 2")
}

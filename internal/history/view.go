package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/gymbook/internal/datasvc"
	"github.com/2beens/gymbook/internal/entity"
	"github.com/2beens/gymbook/internal/notify"
	"github.com/2beens/gymbook/internal/telemetry/metrics"
	"github.com/2beens/gymbook/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	LoadFailedMessage   = "Failed to load workout history"
	DeletedMessage      = "Workout record deleted successfully"
	DeleteFailedMessage = "Failed to delete workout record"
)

var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrNotConfirmed  = errors.New("delete not confirmed")
	ErrUnknownRecord = errors.New("unknown workout record")
)

// View is the workout history of one user, filtered to a month.
type View struct {
	accessor       datasvc.Accessor
	notifier       notify.Notifier
	metricsManager *metrics.Manager

	records  []entity.WorkoutHistory
	filtered []entity.WorkoutHistory
	stats    Stats
	calendar map[string]DayActivity

	month int // 0-based
	year  int
	today time.Time
}

// NewView starts on the month of today.
func NewView(
	accessor datasvc.Accessor,
	notifier notify.Notifier,
	metricsManager *metrics.Manager,
	today time.Time,
) *View {
	v := &View{
		accessor:       accessor,
		notifier:       notifier,
		metricsManager: metricsManager,
		month:          int(today.Month()) - 1,
		year:           today.Year(),
		today:          today,
	}
	v.setRecords(nil)
	return v
}

// Load fetches the user's history, newest first. On failure an error toast
// is sent and the view stays empty.
func (v *View) Load(ctx context.Context, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "history.load")
	defer tracing.EndSpanWithErrCheck(span, &err)

	// user ids go into the query string, accept nothing but a uuid
	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUserID, err)
	}
	span.SetAttributes(attribute.String("user.id", userID))

	query := datasvc.NewQuery(entity.ResourceWorkoutHistory).
		Eq("user_uid", userID).
		OrderBy("date", true)

	records, err := datasvc.ListAs[entity.WorkoutHistory](ctx, v.accessor, query.String())
	if err != nil {
		log.Errorf("history: load for user %s: %s", userID, err)
		v.notify(ctx, notify.Error(LoadFailedMessage))
		return fmt.Errorf("load workout history: %w", err)
	}

	v.setRecords(records)
	return nil
}

func (v *View) setRecords(records []entity.WorkoutHistory) {
	if records == nil {
		records = []entity.WorkoutHistory{}
	}
	v.records = records
	v.ApplyFilters()
	v.stats = computeStats(v.records)
	v.calendar = computeCalendar(v.records)
}

// SetMonth selects a 0-based month and a year, then refilters.
func (v *View) SetMonth(month, year int) error {
	if month < 0 || month > 11 {
		return fmt.Errorf("month %d out of range", month)
	}
	v.month = month
	v.year = year
	v.ApplyFilters()
	return nil
}

// ApplyFilters keeps the records of the selected month and year.
func (v *View) ApplyFilters() {
	filtered := make([]entity.WorkoutHistory, 0, len(v.records))
	for _, r := range v.records {
		if r.Date.IsZero() {
			continue
		}
		if int(r.Date.Month())-1 == v.month && r.Date.Year() == v.year {
			filtered = append(filtered, r)
		}
	}
	v.filtered = filtered
}

// ChangeMonth moves the filter by offset months, rolling over the year.
func (v *View) ChangeMonth(offset int) {
	month := v.month + offset
	year := v.year

	if month > 11 {
		month = 0
		year++
	} else if month < 0 {
		month = 11
		year--
	}

	v.month = month
	v.year = year
	v.ApplyFilters()
}

// Delete removes a workout record once confirmed. On success the record is
// dropped locally and stats are recomputed; on failure an error toast is
// sent and the state is left unchanged.
func (v *View) Delete(ctx context.Context, id int, confirmed bool) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "history.delete")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if !confirmed {
		return ErrNotConfirmed
	}

	if err := v.accessor.DeleteByID(ctx, entity.ResourceWorkoutHistory, id); err != nil {
		log.Errorf("history: delete record %d: %s", id, err)
		v.notify(ctx, notify.Error(DeleteFailedMessage))
		return fmt.Errorf("delete workout record %d: %w", id, err)
	}

	remaining := make([]entity.WorkoutHistory, 0, len(v.records))
	for _, r := range v.records {
		if r.ID != id {
			remaining = append(remaining, r)
		}
	}
	v.setRecords(remaining)

	if v.metricsManager != nil {
		v.metricsManager.CounterWorkoutsDeleted.Inc()
	}
	v.notify(ctx, notify.Success(DeletedMessage))
	return nil
}

// Owns reports whether record id is part of the loaded history.
func (v *View) Owns(id int) bool {
	for _, r := range v.records {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (v *View) Records() []entity.WorkoutHistory {
	return v.records
}

func (v *View) Filtered() []entity.WorkoutHistory {
	return v.filtered
}

func (v *View) Stats() Stats {
	return v.stats
}

func (v *View) Calendar() map[string]DayActivity {
	return v.calendar
}

func (v *View) Month() int {
	return v.month
}

func (v *View) Year() int {
	return v.year
}

// Grid is the calendar grid of the selected month.
func (v *View) Grid() []GridDay {
	return MonthGrid(v.month, v.year, v.calendar, v.today)
}

func (v *View) notify(ctx context.Context, toast notify.Toast) {
	if err := v.notifier.Notify(ctx, toast); err != nil {
		log.Warnf("history: notify [%s]: %s", toast.Message, err)
	}
}

type Row struct {
	entity.WorkoutHistory
	FormattedDate     string `json:"formattedDate"`
	FormattedDuration string `json:"formattedDuration"`
}

// Snapshot is the JSON shape of the history page.
type Snapshot struct {
	Month     int                    `json:"month"`
	MonthName string                 `json:"monthName"`
	Year      int                    `json:"year"`
	Records   []Row                  `json:"records"`
	Stats     Stats                  `json:"stats"`
	Calendar  map[string]DayActivity `json:"calendar"`
	Grid      []GridDay              `json:"grid"`
}

func (v *View) Snapshot() Snapshot {
	rows := make([]Row, 0, len(v.filtered))
	for _, r := range v.filtered {
		rows = append(rows, Row{
			WorkoutHistory:    r,
			FormattedDate:     FormatDate(r.Date),
			FormattedDuration: FormatDuration(r.Duration),
		})
	}

	return Snapshot{
		Month:     v.month,
		MonthName: MonthName(v.month),
		Year:      v.year,
		Records:   rows,
		Stats:     v.stats,
		Calendar:  v.calendar,
		Grid:      v.Grid(),
	}
}

package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// Timestamp keeps the raw value written by the data service next to the
// parsed time, so the calendar date key is exactly the stored date part.
type Timestamp struct {
	time.Time
	Raw string
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Raw: t.Format(time.RFC3339)}
}

func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Raw: s}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unsupported timestamp format: %q", s)
}

// DateKey returns the YYYY-MM-DD part of the stored value.
func (ts Timestamp) DateKey() string {
	raw := ts.Raw
	if raw == "" {
		return ts.Time.Format(time.DateOnly)
	}
	if i := strings.IndexAny(raw, "T "); i >= 0 {
		return raw[:i]
	}
	return raw
}

// UnmarshalJSON leaves a null or empty value as the zero Timestamp, so one
// undated row does not fail a whole listing.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		*ts = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(*s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.Raw == "" && ts.IsZero() {
		return []byte("null"), nil
	}
	if ts.Raw != "" {
		return json.Marshal(ts.Raw)
	}
	return json.Marshal(ts.Time.Format(time.RFC3339))
}

// Package schema holds the domain types shared across the orphanstats
// pipeline: normalized event records, month buckets, message payloads and
// the enums used by configuration and output.
package schema

import (
	"fmt"
	"time"
)

// Event is the normalized record persisted for every message, regardless of
// which source produced it. Year and Month are denormalized from Timestamp
// so that monthly aggregates never need date arithmetic in SQL.
type Event struct {
	MsgID     string
	Timestamp time.Time
	Year      int
	Month     int
	Actor     string
	Package   string
}

// NewEvent builds an Event and derives the Year/Month bucket columns from
// the timestamp. The timestamp is normalized to UTC so that stored string
// representations compare lexically.
func NewEvent(msgID string, ts time.Time, actor, pkg string) Event {
	ts = ts.UTC()
	return Event{
		MsgID:     msgID,
		Timestamp: ts,
		Year:      ts.Year(),
		Month:     int(ts.Month()),
		Actor:     actor,
		Package:   pkg,
	}
}

// Bucket returns the month bucket the event belongs to.
func (e Event) Bucket() Month {
	return Month{Year: e.Year, Month: e.Month}
}

// Month is a (year, month) bucket. It is never persisted; it only
// parameterizes queries and report rows.
type Month struct {
	Year  int
	Month int
}

// MonthOf returns the bucket containing t.
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonth parses a "YYYY-MM" label into a Month.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q (want YYYY-MM): %w", s, err)
	}
	return MonthOf(t), nil
}

// Start returns the first instant of the bucket in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

// Before reports whether m is strictly earlier than other.
func (m Month) Before(other Month) bool {
	return m.Year < other.Year || (m.Year == other.Year && m.Month < other.Month)
}

// After reports whether m is strictly later than other.
func (m Month) After(other Month) bool {
	return other.Before(m)
}

// Label formats the bucket as "YYYY-MM".
func (m Month) Label() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// MonthsBetween returns every bucket from start through end inclusive, in
// calendar order. It returns nil when start is after end.
func MonthsBetween(start, end Month) []Month {
	var months []Month
	for m := start; !m.After(end); m = m.Next() {
		months = append(months, m)
	}
	return months
}

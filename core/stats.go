package core

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/fedora-infra/orphanstats/internal/store"
	"github.com/fedora-infra/orphanstats/schema"
)

// DefaultLookaheadMonths is the minimum number of calendar months of data
// that must exist after a bucket before survivorship counts are trusted.
// Shorter windows produce false positives (an actor who returns next month
// looks gone), so buckets inside the window report an absent value.
const DefaultLookaheadMonths = 3

// Stats answers monthly aggregate queries against an event store. Every
// method is a pure read; absent statistics come back as nil pointers,
// never as zero.
type Stats struct {
	db        *sql.DB
	rebind    func(string) string
	lookahead int
}

// NewStats wraps an open store. lookaheadMonths <= 0 selects the default.
func NewStats(st *store.Store, lookaheadMonths int) *Stats {
	if lookaheadMonths <= 0 {
		lookaheadMonths = DefaultLookaheadMonths
	}
	return &Stats{db: st.DB(), rebind: st.Rebind, lookahead: lookaheadMonths}
}

// bucketFilter is the per-month predicate shared by all aggregates; year and
// month are denormalized columns kept consistent with timestamp at insert.
const bucketFilter = "year = ? AND month = ?"

func (s *Stats) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("aggregate query failed: %w", err)
	}
	return n, nil
}

// OrphanedCount returns the number of orphan events in the bucket.
func (s *Stats) OrphanedCount(ctx context.Context, m schema.Month) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM orphaned WHERE "+bucketFilter, m.Year, m.Month)
}

// Orphaners returns the number of distinct actors who orphaned packages in
// the bucket.
func (s *Stats) Orphaners(ctx context.Context, m schema.Month) (int, error) {
	return s.count(ctx, "SELECT COUNT(DISTINCT actor) FROM orphaned WHERE "+bucketFilter, m.Year, m.Month)
}

// AdoptedCount returns the number of adoption events in the bucket.
func (s *Stats) AdoptedCount(ctx context.Context, m schema.Month) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM adopted WHERE "+bucketFilter, m.Year, m.Month)
}

// Adopters returns the number of distinct actors who adopted packages in
// the bucket.
func (s *Stats) Adopters(ctx context.Context, m schema.Month) (int, error) {
	return s.count(ctx, "SELECT COUNT(DISTINCT actor) FROM adopted WHERE "+bucketFilter, m.Year, m.Month)
}

// RetiredCount returns how many distinct packages orphaned in the bucket
// also have a retirement event at any time.
func (s *Stats) RetiredCount(ctx context.Context, m schema.Month) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(DISTINCT o.package) FROM orphaned o
		JOIN retired r ON o.package = r.package
		WHERE o.year = ? AND o.month = ?`,
		m.Year, m.Month)
}

// CommittedPackages returns the number of distinct packages with a commit in
// the bucket.
func (s *Stats) CommittedPackages(ctx context.Context, m schema.Month) (int, error) {
	return s.count(ctx, "SELECT COUNT(DISTINCT package) FROM commits WHERE "+bucketFilter, m.Year, m.Month)
}

// Committers returns the number of distinct actors with a commit in the
// bucket.
func (s *Stats) Committers(ctx context.Context, m schema.Month) (int, error) {
	return s.count(ctx, "SELECT COUNT(DISTINCT actor) FROM commits WHERE "+bucketFilter, m.Year, m.Month)
}

// AdoptionLatency returns the mean number of whole days between each
// package's adoption in the bucket and its most recent prior orphan event.
// The orphan match compares (year, month) buckets rather than exact
// timestamps, mirroring how everything else here is month-bucketed.
// Packages with no qualifying orphan event are excluded; nil means no
// package qualified at all.
func (s *Stats) AdoptionLatency(ctx context.Context, m schema.Month) (*float64, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT package, MIN(timestamp) FROM adopted WHERE "+bucketFilter+" GROUP BY package"),
		m.Year, m.Month)
	if err != nil {
		return nil, fmt.Errorf("failed to list adoptions for %s: %w", m.Label(), err)
	}
	defer func() { _ = rows.Close() }()

	type adoption struct {
		pkg string
		at  time.Time
	}
	var adoptions []adoption
	for rows.Next() {
		var pkg, raw string
		if err := rows.Scan(&pkg, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan adoption row: %w", err)
		}
		at, err := time.Parse(store.TimeFormat, raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt adoption timestamp %q for %s: %w", raw, pkg, err)
		}
		adoptions = append(adoptions, adoption{pkg: pkg, at: at})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orphanQuery := s.rebind(
		`SELECT timestamp FROM orphaned
		WHERE package = ? AND (year < ? OR (year = ? AND month <= ?))
		ORDER BY year DESC, month DESC, timestamp DESC
		LIMIT 1`)

	var total, samples int
	for _, a := range adoptions {
		var raw string
		err := s.db.QueryRowContext(ctx, orphanQuery, a.pkg, m.Year, m.Year, m.Month).Scan(&raw)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find orphan event for %s: %w", a.pkg, err)
		}
		orphanedAt, err := time.Parse(store.TimeFormat, raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt orphan timestamp %q for %s: %w", raw, a.pkg, err)
		}
		total += int(math.Floor(a.at.Sub(orphanedAt).Hours() / 24))
		samples++
	}
	if samples == 0 {
		return nil, nil
	}
	mean := float64(total) / float64(samples)
	return &mean, nil
}

// monthsOfDataAfter counts the distinct calendar months with commit
// activity strictly after the bucket.
func (s *Stats) monthsOfDataAfter(ctx context.Context, m schema.Month) (int, error) {
	nextStart := m.Next().Start().Format(store.TimeFormat)
	return s.count(ctx,
		"SELECT COUNT(*) FROM (SELECT DISTINCT year, month FROM commits WHERE timestamp >= ?) AS t",
		nextStart)
}

// ActorsGone counts the distinct actors active in table during the bucket
// with zero activity in that same table from the next month onward. When
// fewer than lookahead+1 months of data exist after the bucket, the window
// is too short to call anyone gone and the result is nil.
func (s *Stats) ActorsGone(ctx context.Context, table string, m schema.Month) (*int, error) {
	if !slices.Contains(schema.EventTables, table) {
		return nil, fmt.Errorf("unknown event table: %q", table)
	}

	left, err := s.monthsOfDataAfter(ctx, m)
	if err != nil {
		return nil, err
	}
	if left <= s.lookahead {
		return nil, nil
	}

	nextStart := m.Next().Start().Format(store.TimeFormat)
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM (SELECT DISTINCT actor FROM %[1]s WHERE %[2]s) AS seen
		WHERE seen.actor NOT IN (SELECT actor FROM %[1]s WHERE timestamp >= ?)`,
		table, bucketFilter)
	gone, err := s.count(ctx, query, m.Year, m.Month, nextStart)
	if err != nil {
		return nil, err
	}
	return &gone, nil
}

package core

import (
	"context"
	"time"

	"github.com/fedora-infra/orphanstats/schema"
)

// DefaultReportStart is the first bucket of the report when none is
// configured.
var DefaultReportStart = schema.Month{Year: 2020, Month: 8}

// MonthRow computes every statistic for one bucket.
func (s *Stats) MonthRow(ctx context.Context, m schema.Month) (schema.MonthlyStats, error) {
	row := schema.MonthlyStats{Month: m}
	var err error

	if row.Orphaned, err = s.OrphanedCount(ctx, m); err != nil {
		return row, err
	}
	if row.Orphaners, err = s.Orphaners(ctx, m); err != nil {
		return row, err
	}
	if row.Retired, err = s.RetiredCount(ctx, m); err != nil {
		return row, err
	}
	if row.Adopted, err = s.AdoptedCount(ctx, m); err != nil {
		return row, err
	}
	if row.Adopters, err = s.Adopters(ctx, m); err != nil {
		return row, err
	}
	if row.AdoptionDays, err = s.AdoptionLatency(ctx, m); err != nil {
		return row, err
	}
	if row.CommittedPackages, err = s.CommittedPackages(ctx, m); err != nil {
		return row, err
	}
	if row.Committers, err = s.Committers(ctx, m); err != nil {
		return row, err
	}
	if row.OrphanersGone, err = s.ActorsGone(ctx, schema.TableOrphaned, m); err != nil {
		return row, err
	}
	if row.CommittersGone, err = s.ActorsGone(ctx, schema.TableCommits, m); err != nil {
		return row, err
	}
	return row, nil
}

// BuildReport computes one row per calendar month from start through the
// month containing now, in order. The onMonth hook, when non-nil, is called
// before each bucket is computed; it only feeds the progress display.
func BuildReport(ctx context.Context, s *Stats, start schema.Month, now time.Time, onMonth func(schema.Month)) ([]schema.MonthlyStats, error) {
	months := schema.MonthsBetween(start, schema.MonthOf(now))
	report := make([]schema.MonthlyStats, 0, len(months))
	for _, m := range months {
		if onMonth != nil {
			onMonth(m)
		}
		row, err := s.MonthRow(ctx, m)
		if err != nil {
			return nil, err
		}
		report = append(report, row)
	}
	return report, nil
}

package outwriter

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/fedora-infra/orphanstats/schema"
)

// MonthlyStatsRow is the Parquet representation of one report month.
// Nullable statistics keep pointer fields so absent values stay absent
// instead of becoming zeros.
type MonthlyStatsRow struct {
	Month             string   `parquet:"month,snappy"`
	Orphaned          int32    `parquet:"orphaned,snappy"`
	Orphaners         int32    `parquet:"orphaners,snappy"`
	Retired           int32    `parquet:"retired,snappy"`
	Adopted           int32    `parquet:"adopted,snappy"`
	Adopters          int32    `parquet:"adopters,snappy"`
	AdoptionDays      *float64 `parquet:"adoption_days,optional,snappy"`
	CommittedPackages int32    `parquet:"committed_packages,snappy"`
	Committers        int32    `parquet:"committers,snappy"`
	OrphanersGone     *int32   `parquet:"orphaners_gone,optional,snappy"`
	CommittersGone    *int32   `parquet:"committers_gone,optional,snappy"`
}

// ConvertReportRows converts report rows to their Parquet representation.
func ConvertReportRows(report []schema.MonthlyStats) []MonthlyStatsRow {
	result := make([]MonthlyStatsRow, len(report))
	for i, row := range report {
		result[i] = MonthlyStatsRow{
			Month:             row.Month.Label(),
			Orphaned:          int32(row.Orphaned),
			Orphaners:         int32(row.Orphaners),
			Retired:           int32(row.Retired),
			Adopted:           int32(row.Adopted),
			Adopters:          int32(row.Adopters),
			AdoptionDays:      row.AdoptionDays,
			CommittedPackages: int32(row.CommittedPackages),
			Committers:        int32(row.Committers),
			OrphanersGone:     optionalInt32(row.OrphanersGone),
			CommittersGone:    optionalInt32(row.CommittersGone),
		}
	}
	return result
}

func optionalInt32(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}

// WriteReportParquet writes the monthly report to a Parquet file.
func WriteReportParquet(report []schema.MonthlyStats, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Schema is inferred from the MonthlyStatsRow struct tags.
	writer := parquet.NewGenericWriter[MonthlyStatsRow](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(ConvertReportRows(report)); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

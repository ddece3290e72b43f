// Package outwriter renders the monthly report in its supported output
// formats.
package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fedora-infra/orphanstats/internal/contract"
	"github.com/fedora-infra/orphanstats/schema"
)

// WriteReport writes the monthly report, dispatching on the configured
// output format.
func WriteReport(report []schema.MonthlyStats, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.TableOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportTable(w, report)
		}, "Wrote table")
	case schema.ParquetOut:
		if cfg.OutputFile == "" {
			return fmt.Errorf("parquet output needs --output-file")
		}
		if err := WriteReportParquet(report, cfg.OutputFile); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote parquet to %s\n", cfg.OutputFile)
		return nil
	default: // CSV
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportCSV(w, report)
		}, "Wrote CSV")
	}
}

// writeWithFile handles the open-write-close pattern shared by the text
// formats; an empty path writes to stdout.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "%s to %s\n", successMsg, outputFile)
	}
	return nil
}

// formatRow renders one report row in the fixed column order. Absent
// statistics become empty cells; they are never coerced to zero.
func formatRow(row schema.MonthlyStats) []string {
	return []string{
		row.Month.Label(),
		strconv.Itoa(row.Orphaned),
		strconv.Itoa(row.Orphaners),
		strconv.Itoa(row.Retired),
		strconv.Itoa(row.Adopted),
		strconv.Itoa(row.Adopters),
		formatOptionalFloat(row.AdoptionDays),
		strconv.Itoa(row.CommittedPackages),
		strconv.Itoa(row.Committers),
		formatOptionalInt(row.OrphanersGone),
		formatOptionalInt(row.CommittersGone),
	}
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func writeReportCSV(w io.Writer, report []schema.MonthlyStats) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(schema.ReportHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range report {
		if err := csvWriter.Write(formatRow(row)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", row.Month.Label(), err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

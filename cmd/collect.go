package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fedora-infra/orphanstats/internal/contract"
	"github.com/fedora-infra/orphanstats/internal/datagrepper"
	"github.com/fedora-infra/orphanstats/internal/datanommer"
	"github.com/fedora-infra/orphanstats/internal/ingest"
	"github.com/fedora-infra/orphanstats/schema"
)

// collectCmd groups the event collection subcommands.
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect package lifecycle events into the local store",
	Long: `Pull orphan, adoption and commit messages from Fedora messaging history
and record them as events in the local store. Collection is resumable: each
topic keeps a cursor, so interrupted runs pick up where they left off.`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// collectAPICmd collects events through the datagrepper REST API.
var collectAPICmd = &cobra.Command{
	Use:     "api",
	Short:   "Collect events from the datagrepper REST API",
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		src := datagrepper.NewClient(cfg.DatagrepperURL, cfg.RowsPerPage)
		if err := runCollection(rootCtx, src); err != nil {
			contract.LogFatal("Cannot collect from datagrepper", err)
		}
	},
}

// collectDBCmd collects events straight from a datanommer database.
var collectDBCmd = &cobra.Command{
	Use:     "db",
	Short:   "Collect events from a datanommer PostgreSQL database",
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		dsn, err := cfg.DatanommerDSN()
		if err != nil {
			contract.LogFatal("Cannot resolve datanommer credentials", err)
		}
		src, err := datanommer.Open(rootCtx, dsn, cfg.RowsPerPage)
		if err != nil {
			contract.LogFatal("Cannot connect to datanommer", err)
		}
		defer func() { _ = src.Close() }()
		if err := runCollection(rootCtx, src); err != nil {
			contract.LogFatal("Cannot collect from datanommer", err)
		}
	},
}

// collectionWindow resolves the configured since/until bounds; the window
// defaults to report start through now.
func collectionWindow() (time.Time, time.Time) {
	start := cfg.Since
	if start.IsZero() {
		start = cfg.ReportStart.Start()
	}
	end := cfg.Until
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return start, end
}

// runCollection walks the window one calendar month at a time and records
// the orphan, adopt and commit topics for each slice. Month slices keep the
// source queries bounded and commit the cursor often.
func runCollection(ctx context.Context, src contract.Source) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	progress := ingest.NewProgress(os.Stderr)
	rec := &ingest.Recorder{Store: st, Cfg: cfg, Progress: progress}

	start, end := collectionWindow()
	for m := schema.MonthOf(start); !m.Start().After(end); m = m.Next() {
		sliceStart := m.Start()
		if sliceStart.Before(start) {
			sliceStart = start
		}
		sliceEnd := m.Next().Start()
		if sliceEnd.After(end) {
			sliceEnd = end
		}

		progress.Stepf("collecting %s", m.Label())
		if err := rec.RecordActions(ctx, src, schema.ActionOrphan, sliceStart, sliceEnd); err != nil {
			return err
		}
		if err := rec.RecordActions(ctx, src, schema.ActionAdopt, sliceStart, sliceEnd); err != nil {
			return err
		}
		if err := rec.RecordCommits(ctx, src, sliceStart, sliceEnd); err != nil {
			return err
		}
	}
	progress.Done()
	return nil
}

package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fedora-infra/orphanstats/core"
	"github.com/fedora-infra/orphanstats/internal/contract"
	"github.com/fedora-infra/orphanstats/internal/ingest"
	"github.com/fedora-infra/orphanstats/internal/outwriter"
	"github.com/fedora-infra/orphanstats/schema"
)

// reportCmd builds the monthly report from the local event store.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the monthly package lifecycle report",
	Long: `Compute one row per calendar month from the report start through the
current month: orphan and adoption counts, retirements, commit activity,
adoption latency, and how many orphaners and committers later went quiet.`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		st, err := openStore()
		if err != nil {
			contract.LogFatal("Cannot open event store", err)
		}
		defer func() { _ = st.Close() }()

		stats := core.NewStats(st, cfg.LookaheadMonths)
		progress := ingest.NewProgress(os.Stderr)
		report, err := core.BuildReport(rootCtx, stats, cfg.ReportStart, time.Now().UTC(), func(m schema.Month) {
			progress.Stepf("computing %s", m.Label())
		})
		if err != nil {
			contract.LogFatal("Cannot build report", err)
		}
		progress.Done()

		if err := outwriter.WriteReport(report, cfg); err != nil {
			contract.LogFatal("Cannot write report", err)
		}
	},
}

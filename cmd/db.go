package cmd

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fedora-infra/orphanstats/internal/contract"
	"github.com/fedora-infra/orphanstats/internal/store"
)

// dbCmd groups the event store maintenance subcommands.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect and maintain the local event store",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// dbStatusCmd shows row counts and time spans per event table.
var dbStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show row counts and time spans per event table",
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		st, err := openStore()
		if err != nil {
			contract.LogFatal("Cannot open event store", err)
		}
		defer func() { _ = st.Close() }()

		statuses, err := st.Status(rootCtx)
		if err != nil {
			contract.LogFatal("Cannot inspect event store", err)
		}

		data := make([][]string, 0, len(statuses))
		for _, s := range statuses {
			first, last := "", ""
			if !s.First.IsZero() {
				first = s.First.Format(store.TimeFormat)
				last = s.Last.Format(store.TimeFormat)
			}
			data = append(data, []string{s.Table, strconv.Itoa(s.Rows), first, last})
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"Table", "Rows", "First", "Last"})
		if err := table.Bulk(data); err != nil {
			contract.LogFatal("Cannot render status", err)
		}
		if err := table.Render(); err != nil {
			contract.LogFatal("Cannot render status", err)
		}
	},
}

// dbMigrateCmd migrates the event store schema to a target version.
var dbMigrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Migrate the event store schema",
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := store.Migrate(cfg.Backend, cfg.Database, targetVersion); err != nil {
			contract.LogFatal("Cannot migrate event store", err)
		}
		_, _ = contract.DoneColor.Fprintln(os.Stderr, "Migration complete")
	},
}

// Package cmd defines the command-line interface for orphanstats.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fedora-infra/orphanstats/internal/contract"
	"github.com/fedora-infra/orphanstats/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the collect subcommands to the parent collect command
	collectCmd.AddCommand(collectAPICmd)
	collectCmd.AddCommand(collectDBCmd)

	// Add the db subcommands to the parent db command
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("env", contract.DefaultEnv, "Fedora messaging environment: prod or stg")
	rootCmd.PersistentFlags().String("datagrepper-url", "", "Datagrepper base URL override")
	rootCmd.PersistentFlags().String("backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql")
	rootCmd.PersistentFlags().String("database", contract.DefaultDatabase, "Store path (sqlite) or connection string (mysql/postgresql)")
	rootCmd.PersistentFlags().String("since", "", "Start of the collection window (YYYY-MM-DD or RFC3339); defaults to the report start")
	rootCmd.PersistentFlags().String("until", "", "End of the collection window (YYYY-MM-DD or RFC3339); defaults to now")
	rootCmd.PersistentFlags().String("report-start", contract.DefaultReportStart, "First month of the report (YYYY-MM)")
	rootCmd.PersistentFlags().Int("lookahead-months", contract.DefaultLookaheadMonths, "Months of data needed after a bucket before departures are reported")
	rootCmd.PersistentFlags().String("branches", contract.DefaultBranches, "Comma-separated mainline branches that count for retirements")
	rootCmd.PersistentFlags().Int("rows-per-page", contract.DefaultRowsPerPage, "Messages per datagrepper page or datanommer batch (max 100)")
	rootCmd.PersistentFlags().Bool("resume", true, "Resume collection from the stored per-topic cursor")
	rootCmd.PersistentFlags().String("output", string(schema.CSVOut), "Report format: csv or table or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write the report to")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored progress output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("dn-host", contract.DefaultDatanommerHost, "Datanommer database host")
	rootCmd.PersistentFlags().String("dn-port", contract.DefaultDatanommerPort, "Datanommer database port")
	rootCmd.PersistentFlags().String("dn-database", contract.DefaultDatanommerDatabase, "Datanommer database name")
	rootCmd.PersistentFlags().String("dn-user", contract.DefaultDatanommerUser, "Datanommer database user")
	rootCmd.PersistentFlags().String("pgpass", "", "Path to the pgpass file (defaults to ~/.pgpass)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of dbMigrateCmd to Viper
	dbMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(dbMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding db migrate flags", err)
	}
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fedora-infra/orphanstats/internal/contract"
	"github.com/fedora-infra/orphanstats/internal/store"
	"github.com/fedora-infra/orphanstats/schema"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "orphanstats",
	Short:              "Track orphaned, adopted and retired Fedora packages.",
	Long:               `Orphanstats collects package lifecycle events from Fedora messaging and turns them into a monthly report.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".orphanstats")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("ORPHANSTATS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Set defaults in Viper
	viper.SetDefault("env", contract.DefaultEnv)
	viper.SetDefault("backend", schema.SQLiteBackend)
	viper.SetDefault("database", contract.DefaultDatabase)
	viper.SetDefault("report-start", contract.DefaultReportStart)
	viper.SetDefault("lookahead-months", contract.DefaultLookaheadMonths)
	viper.SetDefault("branches", contract.DefaultBranches)
	viper.SetDefault("rows-per-page", contract.DefaultRowsPerPage)
	viper.SetDefault("resume", true)
	viper.SetDefault("output", schema.CSVOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("dn-host", contract.DefaultDatanommerHost)
	viper.SetDefault("dn-port", contract.DefaultDatanommerPort)
	viper.SetDefault("dn-database", contract.DefaultDatanommerDatabase)
	viper.SetDefault("dn-user", contract.DefaultDatanommerUser)
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	color.NoColor = !cfg.UseColors
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// openStore opens the local event store and runs pending migrations.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.Backend, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s store: %w", cfg.Backend, err)
	}
	return st, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Package contract provides the validated runtime configuration and shared
// utilities used across the ingestion and reporting commands.
package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fedora-infra/orphanstats/schema"
)

// Default values for configuration.
const (
	DefaultEnv             = "prod"
	DefaultDatabase        = "orphanstats.db"
	DefaultRowsPerPage     = 100
	MaxRowsPerPage         = 100
	DefaultLookaheadMonths = 3
	DefaultReportStart     = "2020-08"
	DefaultBranches        = "main,rawhide"

	DefaultDatanommerHost     = "localhost"
	DefaultDatanommerPort     = "5432"
	DefaultDatanommerDatabase = "datanommer2"
	DefaultDatanommerUser     = "datanommer_ro"
)

// Servers maps each messaging environment to its datagrepper base URL.
// Environment selection is an explicit config value threaded through every
// ingestion call; nothing reads it from ambient state.
var Servers = map[string]string{
	"prod": "https://apps.fedoraproject.org/datagrepper",
	"stg":  "https://apps.stg.fedoraproject.org/datagrepper",
}

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config is the final, validated runtime configuration.
type Config struct {
	Env            string
	DatagrepperURL string

	Backend  schema.DatabaseBackend
	Database string

	Since time.Time
	Until time.Time // zero means open-ended

	ReportStart     schema.Month
	LookaheadMonths int
	MainBranches    []string

	RowsPerPage int
	Resume      bool

	Output     schema.OutputMode
	OutputFile string
	UseColors  bool

	DatanommerHost     string
	DatanommerPort     string
	DatanommerDatabase string
	DatanommerUser     string
	PgPassPath         string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config
// file). Viper unmarshals into this struct before validation.
type ConfigRawInput struct {
	Env             string `mapstructure:"env"`
	DatagrepperURL  string `mapstructure:"datagrepper-url"`
	Backend         string `mapstructure:"backend"`
	Database        string `mapstructure:"database"`
	Since           string `mapstructure:"since"`
	Until           string `mapstructure:"until"`
	ReportStart     string `mapstructure:"report-start"`
	LookaheadMonths int    `mapstructure:"lookahead-months"`
	Branches        string `mapstructure:"branches"`
	RowsPerPage     int    `mapstructure:"rows-per-page"`
	Resume          bool   `mapstructure:"resume"`
	Output          string `mapstructure:"output"`
	OutputFile      string `mapstructure:"output-file"`
	Color           string `mapstructure:"color"`

	DatanommerHost     string `mapstructure:"dn-host"`
	DatanommerPort     string `mapstructure:"dn-port"`
	DatanommerDatabase string `mapstructure:"dn-database"`
	DatanommerUser     string `mapstructure:"dn-user"`
	PgPass             string `mapstructure:"pgpass"`
}

// ParseDate accepts either a full RFC3339 timestamp or a plain YYYY-MM-DD
// date (interpreted as midnight UTC).
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateTimeFormat, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC3339)", s)
	}
	return t, nil
}

// parseYesNo interprets the yes/no style flags.
func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "on":
		return true, nil
	case "no", "false", "0", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value %q (want yes/no)", s)
}

// ProcessAndValidate turns the raw viper input into a validated Config.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	baseURL, ok := Servers[input.Env]
	if !ok {
		return fmt.Errorf("unknown environment %q (want prod or stg)", input.Env)
	}
	cfg.Env = input.Env
	cfg.DatagrepperURL = strings.TrimRight(baseURL, "/")
	if input.DatagrepperURL != "" {
		cfg.DatagrepperURL = strings.TrimRight(input.DatagrepperURL, "/")
	}

	switch backend := schema.DatabaseBackend(input.Backend); backend {
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
		cfg.Backend = backend
	default:
		return fmt.Errorf("unknown backend %q (want sqlite, mysql or postgresql)", input.Backend)
	}
	cfg.Database = input.Database
	if cfg.Database == "" {
		return fmt.Errorf("a database path or connection string is required")
	}

	if input.Since != "" {
		since, err := ParseDate(input.Since)
		if err != nil {
			return err
		}
		cfg.Since = since
	}
	if input.Until != "" {
		until, err := ParseDate(input.Until)
		if err != nil {
			return err
		}
		cfg.Until = until
	}
	if !cfg.Until.IsZero() && !cfg.Since.IsZero() && cfg.Until.Before(cfg.Since) {
		return fmt.Errorf("until (%s) is before since (%s)", input.Until, input.Since)
	}

	start, err := schema.ParseMonth(input.ReportStart)
	if err != nil {
		return err
	}
	cfg.ReportStart = start

	if input.LookaheadMonths < 0 {
		return fmt.Errorf("lookahead-months must not be negative")
	}
	cfg.LookaheadMonths = input.LookaheadMonths

	for _, b := range strings.Split(input.Branches, ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.MainBranches = append(cfg.MainBranches, b)
		}
	}
	if len(cfg.MainBranches) == 0 {
		return fmt.Errorf("at least one mainline branch is required")
	}

	if input.RowsPerPage < 1 || input.RowsPerPage > MaxRowsPerPage {
		return fmt.Errorf("rows-per-page must be between 1 and %d", MaxRowsPerPage)
	}
	cfg.RowsPerPage = input.RowsPerPage
	cfg.Resume = input.Resume

	switch output := schema.OutputMode(input.Output); output {
	case schema.CSVOut, schema.TableOut, schema.ParquetOut:
		cfg.Output = output
	default:
		return fmt.Errorf("unknown output format %q (want csv, table or parquet)", input.Output)
	}
	cfg.OutputFile = input.OutputFile

	useColors, err := parseYesNo(input.Color)
	if err != nil {
		return err
	}
	cfg.UseColors = useColors

	cfg.DatanommerHost = input.DatanommerHost
	cfg.DatanommerPort = input.DatanommerPort
	cfg.DatanommerDatabase = input.DatanommerDatabase
	cfg.DatanommerUser = input.DatanommerUser
	cfg.PgPassPath = input.PgPass
	if cfg.PgPassPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.PgPassPath = filepath.Join(home, ".pgpass")
		}
	}

	return nil
}

// TopicAction returns the pagure.project topic for an action in the
// configured environment.
func (c *Config) TopicAction(action string) string {
	return fmt.Sprintf(schema.TopicActionFormat, c.Env, action)
}

// TopicCommit returns the git.receive topic for the configured environment.
func (c *Config) TopicCommit() string {
	return fmt.Sprintf(schema.TopicCommitFormat, c.Env)
}

// TableForAction maps a project action to its event table (orphan ->
// orphaned, adopt -> adopted).
func TableForAction(action string) string {
	return action + "ed"
}

// DatanommerDSN assembles the connection string for the datanommer
// database, resolving the password from the pgpass file.
func (c *Config) DatanommerDSN() (string, error) {
	password, err := LookupPgPass(c.PgPassPath, c.DatanommerHost, c.DatanommerPort, c.DatanommerDatabase, c.DatanommerUser)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s",
		c.DatanommerHost, c.DatanommerPort, c.DatanommerDatabase, c.DatanommerUser, password), nil
}

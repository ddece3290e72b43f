package contract

import (
	"testing"
	"time"

	"github.com/fedora-infra/orphanstats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Env:             "prod",
		Backend:         "sqlite",
		Database:        "orphanstats.db",
		ReportStart:     DefaultReportStart,
		LookaheadMonths: DefaultLookaheadMonths,
		Branches:        DefaultBranches,
		RowsPerPage:     DefaultRowsPerPage,
		Output:          "csv",
		Color:           "yes",
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "https://apps.fedoraproject.org/datagrepper", cfg.DatagrepperURL)
	assert.Equal(t, schema.SQLiteBackend, cfg.Backend)
	assert.Equal(t, schema.Month{Year: 2020, Month: 8}, cfg.ReportStart)
	assert.Equal(t, []string{"main", "rawhide"}, cfg.MainBranches)
	assert.Equal(t, schema.CSVOut, cfg.Output)
	assert.True(t, cfg.UseColors)
}

func TestProcessAndValidateStaging(t *testing.T) {
	input := validInput()
	input.Env = "stg"
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, "https://apps.stg.fedoraproject.org/datagrepper", cfg.DatagrepperURL)
	assert.Equal(t, "org.fedoraproject.stg.pagure.project.orphan", cfg.TopicAction("orphan"))
	assert.Equal(t, "org.fedoraproject.stg.git.receive", cfg.TopicCommit())
}

func TestProcessAndValidateDates(t *testing.T) {
	input := validInput()
	input.Since = "2023-08-01"
	input.Until = "2023-09-01T12:00:00Z"
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC), cfg.Since)
	assert.Equal(t, time.Date(2023, 9, 1, 12, 0, 0, 0, time.UTC), cfg.Until)
}

func TestProcessAndValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConfigRawInput)
	}{
		{"unknown env", func(in *ConfigRawInput) { in.Env = "qa" }},
		{"unknown backend", func(in *ConfigRawInput) { in.Backend = "oracle" }},
		{"empty database", func(in *ConfigRawInput) { in.Database = "" }},
		{"bad since", func(in *ConfigRawInput) { in.Since = "last tuesday" }},
		{"until before since", func(in *ConfigRawInput) { in.Since = "2024-02-01"; in.Until = "2024-01-01" }},
		{"bad report start", func(in *ConfigRawInput) { in.ReportStart = "2020/08" }},
		{"negative lookahead", func(in *ConfigRawInput) { in.LookaheadMonths = -1 }},
		{"no branches", func(in *ConfigRawInput) { in.Branches = " , " }},
		{"rows per page too big", func(in *ConfigRawInput) { in.RowsPerPage = 500 }},
		{"rows per page zero", func(in *ConfigRawInput) { in.RowsPerPage = 0 }},
		{"unknown output", func(in *ConfigRawInput) { in.Output = "xml" }},
		{"bad color flag", func(in *ConfigRawInput) { in.Color = "maybe" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			assert.Error(t, ProcessAndValidate(&Config{}, input))
		})
	}
}

func TestTableForAction(t *testing.T) {
	assert.Equal(t, schema.TableOrphaned, TableForAction(schema.ActionOrphan))
	assert.Equal(t, schema.TableAdopted, TableForAction(schema.ActionAdopt))
}

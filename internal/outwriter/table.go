package outwriter

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/fedora-infra/orphanstats/schema"
)

func writeReportTable(w io.Writer, report []schema.MonthlyStats) error {
	data := make([][]string, 0, len(report))
	for _, row := range report {
		data = append(data, formatRow(row))
	}

	table := tablewriter.NewWriter(w)
	table.Header(schema.ReportHeader)
	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(data); err != nil {
		return fmt.Errorf("failed to load table rows: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

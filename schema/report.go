package schema

// MonthlyStats is one row of the monthly report. Pointer fields are
// statistics that can be absent: a nil value renders as an empty cell,
// never as zero.
type MonthlyStats struct {
	Month             Month
	Orphaned          int
	Orphaners         int
	Retired           int
	Adopted           int
	Adopters          int
	AdoptionDays      *float64
	CommittedPackages int
	Committers        int
	OrphanersGone     *int
	CommittersGone    *int
}

// ReportHeader is the fixed column order of the monthly report.
var ReportHeader = []string{
	"Date",
	"Orphaned",
	"Orphaners",
	"Retired",
	"Adoptions",
	"Adopters",
	"Avg adoption days",
	"Packages with commits",
	"Committers",
	"Orphaners who left",
	"Committers who left",
}

package ingest

import (
	"fmt"
	"io"
	"os"

	"github.com/fedora-infra/orphanstats/internal/contract"
	"golang.org/x/term"
)

// Progress is the cosmetic ingestion progress line. It rewrites a single
// stderr line while paginating and stays silent when the writer is not a
// terminal (logs, cron), so it never pollutes captured output.
type Progress struct {
	w       io.Writer
	enabled bool
	active  bool
}

// NewProgress returns a progress line on f, enabled only when f is a
// terminal.
func NewProgress(f *os.File) *Progress {
	return &Progress{w: f, enabled: term.IsTerminal(int(f.Fd()))}
}

// Stepf rewrites the progress line.
func (p *Progress) Stepf(format string, args ...any) {
	if p == nil || !p.enabled {
		return
	}
	p.active = true
	fmt.Fprintf(p.w, "\r\033[K"+format, args...)
}

// Page reports pagination progress; total may be 0 when unknown.
func (p *Progress) Page(label string, page, total int) {
	if total > 0 {
		p.Stepf("%s: page %d/%d", label, page, total)
	} else {
		p.Stepf("%s: batch %d", label, page)
	}
}

// Done finishes the line.
func (p *Progress) Done() {
	if p == nil || !p.enabled || !p.active {
		return
	}
	p.active = false
	fmt.Fprint(p.w, "\r\033[K")
	_, _ = contract.DoneColor.Fprintln(p.w, "done.")
}

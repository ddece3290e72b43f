// Package core holds the monthly aggregation logic: the retirement
// classifier, the per-bucket statistics queries and the report driver.
package core

import (
	"slices"

	"github.com/fedora-infra/orphanstats/schema"
)

// DefaultMainBranches are the mainline branches on which a dead.package
// addition counts as a retirement.
var DefaultMainBranches = []string{"main", "rawhide"}

// IsRetirement reports whether a commit message represents a package
// retirement: the dead.package sentinel was added (nonzero additions, not a
// plain deletion) on one of the mainline branches. Messages without a commit
// body or without the file in their change stats are simply not retirements.
func IsRetirement(msg *schema.Message, branches []string) bool {
	commit := msg.Body.Commit
	if commit == nil {
		return false
	}
	change, ok := commit.Stats.Files[schema.RetirementFile]
	if !ok {
		return false
	}
	if change.Additions == 0 {
		// The file was modified or deleted, not introduced.
		return false
	}
	return slices.Contains(branches, commit.Branch)
}

// main is the entry point for the orphanstats CLI.
package main

import (
	"github.com/fedora-infra/orphanstats/cmd"
	"github.com/fedora-infra/orphanstats/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("command failed", err)
	}
}

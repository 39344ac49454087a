// Command saya runs the proving orchestrator: it ingests new rollup
// blocks, drives them through SNOS proving, optional recursive
// layout-bridge proving, data availability, and settlement, in whichever
// topology the chosen subcommand selects.
package main

import (
	"fmt"
	"os"

	"github.com/sayaproofs/saya/cmd/saya/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

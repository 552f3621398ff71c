// Propfinder finds knowledge-graph properties from free-text labels.
//
// It expands a label into backend searches, grows the hits through
// property relations, filters them by constraints and ranks what is left.
// Results are served over HTTP, MCP and the command line.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/propfinder-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

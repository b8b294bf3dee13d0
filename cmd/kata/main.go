// Command kata runs JavaScript solutions against test fixtures and reports
// results as a token stream.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/kata/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if cli.NeedsReport(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}

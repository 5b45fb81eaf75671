// Command verilib tracks the artifacts of a verification project and keeps
// the specify and verify certificate ledgers in line with its tooling.
package main

import (
	"os"

	"github.com/roach88/verilib/internal/cli"
)

func main() {
	if err := cli.Execute(cli.NewRootCommand()); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}

// Command fxscalper is the entry point for the forex trading bot. See
// "fxscalper --help" for the available subcommands.
package main

import (
	"os"

	"github.com/alanyoungcy/fxscalper/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

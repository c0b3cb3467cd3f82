package main

import (
	"os"

	"github.com/strataconf/strata/internal/adapters/driving/cli"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

func main() {
	if err := cli.Execute(Version); err != nil {
		os.Exit(1)
	}
}

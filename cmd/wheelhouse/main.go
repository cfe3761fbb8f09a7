package main

import (
	"os"

	"github.com/wheelops/wheelhouse/cmd/wheelhouse/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

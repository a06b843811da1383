package main

import (
	"os"

	"github.com/hhkbp2/kvbench/cmd/kvbench/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

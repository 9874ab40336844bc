package main

import (
	"os"

	"github.com/stayops-systems/sentinel/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main is the entry point for the dg CLI tool.
package main

import (
	"os"

	"github.com/aidanlsb/discourse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

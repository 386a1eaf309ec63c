// Package main is the entry point for the upline CLI.
package main

import (
	"os"

	"github.com/uplinehq/upline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main is the entry point for the connector CLI and HTTP service.
package main

import (
	"os"

	"github.com/mrz1836/connector/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}

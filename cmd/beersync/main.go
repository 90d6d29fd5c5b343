// Package main provides the entry point for the beersync CLI.
package main

import (
	"fmt"
	"os"

	"BeerSync/internal/cli"
)

func main() {
	err := cli.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}

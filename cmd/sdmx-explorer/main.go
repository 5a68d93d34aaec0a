// Package main is the entry point for the sdmx-explorer binary.
package main

import (
	"os"

	"sdmx-explorer/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}

// Package main is the entry point for ledgerctl.
package main

import (
	"os"

	"ledger/cmd/ledgerctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"
)

var (
	Version    = "0.1.0"
	CommitHash = ""
)

// PrintVersion writes to stderr: stdout belongs to lightningd.
func PrintVersion() {
	fmt.Fprintf(os.Stderr, "esplora-bcli version: %s\n", Version)
	if CommitHash != "" {
		fmt.Fprintf(os.Stderr, "commit hash: %s\n", CommitHash)
	}
}

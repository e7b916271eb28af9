// Package main is the entry point for the speakerid CLI.
//
// Usage:
//
//	speakerid [flags] <command> [args]
//
// Commands:
//
//	verify      - Compare two recordings, or a recording against an enrolled speaker
//	enroll      - Register a speaker from reference audio
//	enroll-dir  - Register every recording in a directory
//	identify    - Rank enrolled speakers against a recording
//	list        - List enrolled speakers
//	show        - Show one enrolled speaker
//	delete      - Remove an enrolled speaker
//	serve       - Run the HTTP API
//	config      - Configuration management (contexts)
//	version     - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/speakerid/cmd/speakerid/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}

// ledger is the command-line interface for the event-sourced banking ledger.
//
// Usage:
//
//	ledger <command> [flags]
//
// Commands:
//
//	init        Write a ledger.yaml
//	serve       Run the HTTP API
//	migrate     Create and inspect the event store schema
//	client      Register clients and manage their accounts
//	account     Inspect accounts and move money
//	diagnose    Run diagnostic checks on your setup
//	version     Show version information
//
// Examples:
//
//	# Create the tables and start the API
//	ledger migrate up
//	ledger serve --address :8080
//
//	# Register a client and open an account
//	ledger client create --ssn 123456789 --first-name Ada --last-name Lovelace --birth-date 10/12/1815
//	ledger client add-account <client-id> --name checking
//
//	# Move money
//	ledger account credit <account-id> --dollars 100
package main

import (
	"os"

	"github.com/AshkanYarmoradi/go-ledger/cli/commands"
)

// Build information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.BuildDate = buildDate

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

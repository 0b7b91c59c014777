// Package commands provides the CLI command implementations for ledger.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
	"github.com/AshkanYarmoradi/go-ledger/cli/styles"
	"github.com/AshkanYarmoradi/go-ledger/cli/ui"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// globals carries the persistent flags to every subcommand.
type globals struct {
	configPath string
	noColor    bool

	// adapter replaces the configured event store when set. It is not
	// closed by commands.
	adapter adapters.EventStoreAdapter
}

// Option configures the root command.
type Option func(*globals)

// WithAdapter makes every command use adapter instead of the one named in
// the configuration.
func WithAdapter(adapter adapters.EventStoreAdapter) Option {
	return func(g *globals) {
		g.adapter = adapter
	}
}

// NewRootCommand creates the root command for the ledger CLI
func NewRootCommand(opts ...Option) *cobra.Command {
	g := &globals{}
	for _, opt := range opts {
		opt(g)
	}

	rootCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Event-sourced banking ledger",
		Long: ui.SimpleBanner() + `

Clients, accounts and money movements recorded as an append-only event log.

` + styles.Title.Render("Quick Start:") + `

  ` + styles.Code.Render("ledger init") + `              Write a ledger.yaml
  ` + styles.Code.Render("ledger migrate up") + `        Create the event store tables
  ` + styles.Code.Render("ledger serve") + `             Run the HTTP API
  ` + styles.Code.Render("ledger client create") + `     Register a client
  ` + styles.Code.Render("ledger diagnose") + `          Check your setup`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				styles.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to ledger.yaml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewServeCommand(g))
	rootCmd.AddCommand(NewMigrateCommand(g))
	rootCmd.AddCommand(NewClientCommand(g))
	rootCmd.AddCommand(NewAccountCommand(g))
	rootCmd.AddCommand(NewDiagnoseCommand(g))
	rootCmd.AddCommand(NewVersionCommand(Version, Commit, BuildDate))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.FormatError(err.Error()))
		return err
	}

	return nil
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
	"github.com/AshkanYarmoradi/go-ledger/adapters/postgres"
	"github.com/AshkanYarmoradi/go-ledger/cli/styles"
	"github.com/AshkanYarmoradi/go-ledger/cli/ui"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the event store schema",
		Long: `Create and inspect the event store schema.

Examples:
  ledger migrate up       # Create the aggregates and events tables
  ledger migrate status   # Show whether the schema exists
  ledger migrate sql      # Print the DDL without running it`,
	}

	cmd.AddCommand(newMigrateUpCommand(g))
	cmd.AddCommand(newMigrateStatusCommand(g))
	cmd.AddCommand(newMigrateSQLCommand(g))

	return cmd
}

// openMigrator opens the configured adapter and returns it as a Migrator.
// ok is false for adapters without a schema, such as the memory driver.
func openMigrator(ctx context.Context, g *globals) (env *Env, m adapters.Migrator, ok bool, err error) {
	env, err = g.openEnv(ctx)
	if err != nil {
		return nil, nil, false, err
	}

	m, ok = env.Adapter.(adapters.Migrator)
	return env, m, ok, nil
}

func newMigrateUpCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create the event store schema",
		Long: `Create the schema, the aggregates table and the events table.

Statements are idempotent; running up twice is harmless.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			env, m, ok, err := openMigrator(ctx, g)
			if err != nil {
				return err
			}
			defer env.Close()

			if !ok {
				fmt.Fprintln(out, styles.FormatInfo("Memory driver doesn't require migrations"))
				return nil
			}

			return ui.RunSpinner(ctx, out, "Applying schema...", "Schema is up to date", m.Migrate)
		},
	}
}

func newMigrateStatusCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			env, m, ok, err := openMigrator(ctx, g)
			if err != nil {
				return err
			}
			defer env.Close()

			if !ok {
				fmt.Fprintln(out, styles.FormatInfo("Memory driver doesn't use migrations"))
				return nil
			}

			version, err := m.MigrationVersion(ctx)
			if err != nil {
				return err
			}

			status := "applied"
			if version == 0 {
				status = "pending"
			}

			table := ui.NewTable("Schema", "Version", "Status")
			table.AddRow(env.Config.Database.Schema, fmt.Sprint(version), ui.StatusBadge(status))

			fmt.Fprintln(out)
			fmt.Fprintln(out, styles.Title.Render(styles.IconDatabase+" Migration Status"))
			fmt.Fprintln(out, table.Render())
			fmt.Fprintln(out)

			if version == 0 {
				fmt.Fprintln(out, styles.FormatWarning("Schema not created, run 'ledger migrate up'"))
			} else {
				fmt.Fprintln(out, styles.FormatSuccess("Database is up to date"))
			}
			return nil
		},
	}
}

func newMigrateSQLCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "sql",
		Short: "Print the schema DDL",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := postgres.DefaultSchema
			if cfg, err := g.loadConfig(); err == nil && cfg.Database.Schema != "" {
				schema = cfg.Database.Schema
			}

			for _, stmt := range postgres.MigrationStatements(schema) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
			}
			return nil
		},
	}
}

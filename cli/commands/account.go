package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AshkanYarmoradi/go-ledger"
	"github.com/AshkanYarmoradi/go-ledger/api"
	"github.com/AshkanYarmoradi/go-ledger/cli/styles"
	"github.com/AshkanYarmoradi/go-ledger/cli/ui"
)

// NewAccountCommand creates the account command
func NewAccountCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Inspect accounts and move money",
		Long: `Inspect accounts and move money.

Examples:
  ledger account show <account-id>
  ledger account credit <account-id> --dollars 100
  ledger account debit <account-id> --dollars 12 --cents 50
  ledger account max-debt <account-id> --dollars 500`,
	}

	cmd.AddCommand(newAccountShowCommand(g))
	cmd.AddCommand(newAmountCommand(g, "credit", "Add money to an account", "Credited account",
		func(c ledger.AmountCommand) ledger.Command { return ledger.CreditAccount(c) }))
	cmd.AddCommand(newAmountCommand(g, "debit", "Take money from an account", "Debited account",
		func(c ledger.AmountCommand) ledger.Command { return ledger.DebitAccount(c) }))
	cmd.AddCommand(newAmountCommand(g, "max-debt", "Change how far below zero an account may go", "Changed maximum debt of account",
		func(c ledger.AmountCommand) ledger.Command { return ledger.ChangeMaximumDebt(c) }))

	return cmd
}

func newAccountShowCommand(g *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <account-id>",
		Short: "Show an account's balance and limits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ledger.ParseID(args[0])
			if err != nil {
				return err
			}

			env, err := g.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			account, err := env.Service.Accounts().GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, api.NewAccountResponse(account))
			}

			status := "open"
			if account.Balance().IsNegative() {
				status = "overdrawn"
			}

			table := ui.NewTable("Field", "Value")
			table.AddRow("ID", account.AggregateID().String())
			table.AddRow("Client", account.ClientID().String())
			table.AddRow("Name", account.Name())
			table.AddRow("Balance", formatAmount(account.Balance()))
			table.AddRow("Maximum debt", formatAmount(account.MaximumDebt()))
			table.AddRow("Status", ui.StatusBadge(status))
			table.AddRow("Version", strconv.FormatInt(account.Version(), 10))

			fmt.Fprintln(out)
			fmt.Fprintln(out, styles.Title.Render(styles.IconAccount+" Account"))
			fmt.Fprintln(out, table.Render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the account as JSON")

	return cmd
}

// newAmountCommand builds credit, debit and max-debt, which differ only in
// the command they dispatch.
func newAmountCommand(g *globals, use, short, what string, build func(ledger.AmountCommand) ledger.Command) *cobra.Command {
	var (
		dollars     int64
		cents       int64
		operationID string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   use + " <account-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			result, err := env.Service.Bus().Dispatch(cmd.Context(), build(ledger.AmountCommand{
				CommandBase: ledger.CommandBase{OperationID: operationID},
				AccountID:   args[0],
				Dollars:     dollars,
				Cents:       cents,
			}))
			if err != nil {
				return err
			}

			return printResult(cmd.OutOrStdout(), result, what, asJSON)
		},
	}

	cmd.Flags().Int64VarP(&dollars, "dollars", "d", 0, "Whole dollars")
	cmd.Flags().Int64Var(&cents, "cents", 0, "Cents")
	cmd.Flags().StringVar(&operationID, "operation-id", "", "Idempotency key (default: generated)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

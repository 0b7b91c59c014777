package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AshkanYarmoradi/go-ledger"
	"github.com/AshkanYarmoradi/go-ledger/api"
	"github.com/AshkanYarmoradi/go-ledger/cli/styles"
	"github.com/AshkanYarmoradi/go-ledger/cli/ui"
)

// NewClientCommand creates the client command
func NewClientCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Register clients and manage their accounts",
		Long: `Register clients and manage their accounts.

Examples:
  ledger client create --ssn 123456789 --first-name Ada --last-name Lovelace --birth-date 10/12/1815
  ledger client show <client-id>
  ledger client add-account <client-id> --name checking
  ledger client remove-account <client-id> <account-id>`,
	}

	cmd.AddCommand(newClientCreateCommand(g))
	cmd.AddCommand(newClientShowCommand(g))
	cmd.AddCommand(newClientAddAccountCommand(g))
	cmd.AddCommand(newClientRemoveAccountCommand(g))

	return cmd
}

type clientFields struct {
	ssn       string
	firstName string
	lastName  string
	birthDate string
}

func (f clientFields) complete() bool {
	return f.ssn != "" && f.firstName != "" && f.lastName != "" && f.birthDate != ""
}

func parseSSN(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid social security number %q", s)
	}
	if _, err := ledger.NewSSN(n); err != nil {
		return 0, err
	}
	return n, nil
}

func validateName(s string) error {
	_, err := ledger.NewFirstName(s)
	return err
}

func validateBirthDate(s string) error {
	_, err := ledger.ParseBirthdate(s)
	return err
}

func runClientForm(f *clientFields) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Social Security Number").
				Description("Nine digits").
				Value(&f.ssn).
				Validate(func(s string) error {
					_, err := parseSSN(s)
					return err
				}),

			huh.NewInput().
				Title("First Name").
				Value(&f.firstName).
				Validate(validateName),

			huh.NewInput().
				Title("Last Name").
				Value(&f.lastName).
				Validate(validateName),

			huh.NewInput().
				Title("Birth Date").
				Description("dd/mm/yyyy").
				Value(&f.birthDate).
				Validate(validateBirthDate),
		).Title("New Client"),
	)

	return form.Run()
}

func newClientCreateCommand(g *globals) *cobra.Command {
	var (
		fields         clientFields
		operationID    string
		nonInteractive bool
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new client",
		Long: `Register a new client.

Missing fields are asked for interactively unless --non-interactive is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !fields.complete() && !nonInteractive {
				if err := runClientForm(&fields); err != nil {
					return err
				}
			}

			ssn, err := parseSSN(fields.ssn)
			if err != nil {
				return err
			}

			env, err := g.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			result, err := env.Service.Bus().Dispatch(cmd.Context(), ledger.RegisterClient{
				CommandBase:          ledger.CommandBase{OperationID: operationID},
				SocialSecurityNumber: ssn,
				FirstName:            fields.firstName,
				LastName:             fields.lastName,
				Birthdate:            fields.birthDate,
			})
			if err != nil {
				return err
			}

			return printResult(cmd.OutOrStdout(), result, "Registered client", asJSON)
		},
	}

	cmd.Flags().StringVar(&fields.ssn, "ssn", "", "Social security number (nine digits)")
	cmd.Flags().StringVar(&fields.firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&fields.lastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&fields.birthDate, "birth-date", "", "Birth date (dd/mm/yyyy)")
	cmd.Flags().StringVar(&operationID, "operation-id", "", "Idempotency key (default: generated)")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt for missing fields")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func newClientShowCommand(g *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <client-id>",
		Short: "Show a client and its accounts",
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

			client, err := env.Service.Clients().GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, api.NewClientResponse(client))
			}

			table := ui.NewTable("Field", "Value")
			table.AddRow("ID", client.AggregateID().String())
			table.AddRow("SSN", client.SSN().String())
			table.AddRow("First name", client.FirstName().String())
			table.AddRow("Last name", client.LastName().String())
			table.AddRow("Birth date", client.Birthdate().Value())
			table.AddRow("Version", strconv.FormatInt(client.Version(), 10))

			fmt.Fprintln(out)
			fmt.Fprintln(out, styles.Title.Render(styles.IconClient+" Client"))
			fmt.Fprintln(out, table.Render())

			accounts := make([]string, 0, len(client.Accounts()))
			for _, accountID := range client.Accounts() {
				accounts = append(accounts, accountID.String())
			}
			fmt.Fprintln(out)
			if len(accounts) == 0 {
				fmt.Fprintln(out, styles.Muted.Render("No accounts"))
				return nil
			}
			fmt.Fprintln(out, styles.Subtitle.Render(fmt.Sprintf("Accounts (%d)", len(accounts))))
			fmt.Fprint(out, ui.ListItems(accounts))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the client as JSON")

	return cmd
}

func newClientAddAccountCommand(g *globals) *cobra.Command {
	var (
		name        string
		operationID string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "add-account <client-id>",
		Short: "Open a new account for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			result, err := env.Service.Bus().Dispatch(cmd.Context(), ledger.AddAccountToClient{
				CommandBase: ledger.CommandBase{OperationID: operationID},
				ClientID:    args[0],
				AccountName: name,
			})
			if err != nil {
				return err
			}

			return printResult(cmd.OutOrStdout(), result, "Opened account", asJSON)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Account name")
	cmd.Flags().StringVar(&operationID, "operation-id", "", "Idempotency key (default: generated)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newClientRemoveAccountCommand(g *globals) *cobra.Command {
	var (
		operationID string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "remove-account <client-id> <account-id>",
		Short: "Unlink an account from a client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			result, err := env.Service.Bus().Dispatch(cmd.Context(), ledger.RemoveAccountFromClient{
				CommandBase: ledger.CommandBase{OperationID: operationID},
				ClientID:    args[0],
				AccountID:   args[1],
			})
			if err != nil {
				return err
			}

			return printResult(cmd.OutOrStdout(), result, "Removed account from client", asJSON)
		},
	}

	cmd.Flags().StringVar(&operationID, "operation-id", "", "Idempotency key (default: generated)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

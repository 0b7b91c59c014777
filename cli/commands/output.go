package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/AshkanYarmoradi/go-ledger"
	"github.com/AshkanYarmoradi/go-ledger/api"
	"github.com/AshkanYarmoradi/go-ledger/cli/styles"
)

// printResult reports a dispatched command. what names the change, e.g.
// "Credited account".
func printResult(out io.Writer, result ledger.CommandResult, what string, asJSON bool) error {
	if asJSON {
		return printJSON(out, api.NewCommandResponse(result))
	}

	if result.Duplicate {
		fmt.Fprintln(out, styles.FormatWarning(fmt.Sprintf("Operation already applied to %s, nothing changed", result.AggregateID)))
		return nil
	}

	fmt.Fprintln(out, styles.FormatSuccess(fmt.Sprintf("%s %s (version %d)", what, result.AggregateID, result.Version)))
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatAmount(a ledger.Amount) string {
	return styles.FormatMoney(a.Dollars(), a.Cents())
}

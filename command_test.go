package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTypes(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{RegisterClient{}, CommandRegisterClient},
		{AddAccountToClient{}, CommandAddAccountToClient},
		{RemoveAccountFromClient{}, CommandRemoveAccountFromClient},
		{OpenAccount{}, CommandOpenAccount},
		{CreditAccount{}, CommandCreditAccount},
		{DebitAccount{}, CommandDebitAccount},
		{ChangeMaximumDebt{}, CommandChangeMaximumDebt},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cmd.CommandType())
	}
}

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		name   string
		cmd    Command
		fields []string
	}{
		{"register client complete", RegisterClient{SocialSecurityNumber: 123456789, FirstName: "Ada", LastName: "Lovelace", Birthdate: "10/12/1815"}, nil},
		{"register client empty", RegisterClient{}, []string{"first_name", "last_name", "birth_date"}},
		{"add account", AddAccountToClient{ClientID: "c", AccountName: "n"}, nil},
		{"add account empty", AddAccountToClient{}, []string{"client_id", "account_name"}},
		{"remove account empty", RemoveAccountFromClient{ClientID: "c"}, []string{"account_id"}},
		{"open account empty", OpenAccount{AccountID: "a"}, []string{"client_id"}},
		{"credit", CreditAccount{AccountID: "a", Dollars: 1}, nil},
		{"credit empty", CreditAccount{}, []string{"account_id"}},
		{"debit empty", DebitAccount{}, []string{"account_id"}},
		{"maximum debt empty", ChangeMaximumDebt{}, []string{"account_id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}

			var multi *MultiValidationError
			require.True(t, errors.As(err, &multi))
			assert.Equal(t, tt.cmd.CommandType(), multi.CommandType)
			fields := make([]string, len(multi.Errors))
			for i, e := range multi.Errors {
				fields[i] = e.Field
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestAmountCommand(t *testing.T) {
	cmd := CreditAccount{AccountID: "a", Dollars: 2, Cents: 150}

	assert.Equal(t, NewAmount(3, 50), AmountCommand(cmd).Amount())
}

func TestCommandBase(t *testing.T) {
	base := CommandBase{OperationID: "op-1", CorrelationID: "corr-1"}
	cmd := DebitAccount{CommandBase: base}

	assert.Equal(t, "op-1", cmd.IdempotencyKey())
	assert.Equal(t, "corr-1", cmd.GetCorrelationID())
}

func TestCommandResult(t *testing.T) {
	success := NewSuccessResult("account-1", 3)
	assert.True(t, success.IsSuccess())
	assert.False(t, success.IsError())
	assert.Equal(t, int64(3), success.Version)

	dup := NewDuplicateResult("account-1")
	assert.True(t, dup.IsSuccess())
	assert.True(t, dup.Duplicate)

	failed := NewErrorResult(ErrValidation)
	assert.False(t, failed.IsSuccess())
	assert.True(t, failed.IsError())
}

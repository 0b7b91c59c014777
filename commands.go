package ledger

// Command type identifiers.
const (
	CommandRegisterClient          = "RegisterClient"
	CommandAddAccountToClient      = "AddAccountToClient"
	CommandRemoveAccountFromClient = "RemoveAccountFromClient"
	CommandOpenAccount             = "OpenAccount"
	CommandCreditAccount           = "CreditAccount"
	CommandDebitAccount            = "DebitAccount"
	CommandChangeMaximumDebt       = "ChangeMaximumDebt"
)

var (
	_ IdempotentCommand = RegisterClient{}
	_ IdempotentCommand = AddAccountToClient{}
	_ IdempotentCommand = RemoveAccountFromClient{}
	_ IdempotentCommand = OpenAccount{}
	_ IdempotentCommand = CreditAccount{}
	_ IdempotentCommand = DebitAccount{}
	_ IdempotentCommand = ChangeMaximumDebt{}

	_ TargetedCommand = RegisterClient{}
	_ TargetedCommand = AddAccountToClient{}
	_ TargetedCommand = RemoveAccountFromClient{}
	_ TargetedCommand = OpenAccount{}
	_ TargetedCommand = CreditAccount{}
	_ TargetedCommand = DebitAccount{}
	_ TargetedCommand = ChangeMaximumDebt{}
)

// RegisterClient creates a new client.
type RegisterClient struct {
	CommandBase
	SocialSecurityNumber int64  `json:"social_security_number"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Birthdate            string `json:"birth_date"`
}

// CommandType implements Command.
func (RegisterClient) CommandType() string { return CommandRegisterClient }

// TargetID implements TargetedCommand. A new client has no id yet.
func (RegisterClient) TargetID() string { return "" }

// Validate implements Command. Value rules (nine digit SSN, date format) are
// enforced by the value constructors when the command is handled.
func (c RegisterClient) Validate() error {
	errs := NewMultiValidationError(c.CommandType())
	if c.FirstName == "" {
		errs.Add("first_name", "is required")
	}
	if c.LastName == "" {
		errs.Add("last_name", "is required")
	}
	if c.Birthdate == "" {
		errs.Add("birth_date", "is required")
	}
	return errs.ErrorOrNil()
}

// AddAccountToClient links a new account to a client. The account id is
// generated by the handler and returned in the result.
type AddAccountToClient struct {
	CommandBase
	ClientID    string `json:"client_id"`
	AccountName string `json:"account_name"`
}

// CommandType implements Command.
func (AddAccountToClient) CommandType() string { return CommandAddAccountToClient }

// TargetID implements TargetedCommand.
func (c AddAccountToClient) TargetID() string { return c.ClientID }

// Validate implements Command.
func (c AddAccountToClient) Validate() error {
	errs := NewMultiValidationError(c.CommandType())
	if c.ClientID == "" {
		errs.Add("client_id", "is required")
	}
	if c.AccountName == "" {
		errs.Add("account_name", "is required")
	}
	return errs.ErrorOrNil()
}

// RemoveAccountFromClient unlinks an account from a client.
type RemoveAccountFromClient struct {
	CommandBase
	ClientID  string `json:"client_id"`
	AccountID string `json:"account_id"`
}

// CommandType implements Command.
func (RemoveAccountFromClient) CommandType() string { return CommandRemoveAccountFromClient }

// TargetID implements TargetedCommand.
func (c RemoveAccountFromClient) TargetID() string { return c.ClientID }

// Validate implements Command.
func (c RemoveAccountFromClient) Validate() error {
	errs := NewMultiValidationError(c.CommandType())
	if c.ClientID == "" {
		errs.Add("client_id", "is required")
	}
	if c.AccountID == "" {
		errs.Add("account_id", "is required")
	}
	return errs.ErrorOrNil()
}

// OpenAccount creates the account aggregate for an account linked to a client.
// It is normally issued by the AccountAddedToClient subscriber.
type OpenAccount struct {
	CommandBase
	ClientID    string `json:"client_id"`
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
}

// CommandType implements Command.
func (OpenAccount) CommandType() string { return CommandOpenAccount }

// TargetID implements TargetedCommand.
func (c OpenAccount) TargetID() string { return c.AccountID }

// Validate implements Command.
func (c OpenAccount) Validate() error {
	errs := NewMultiValidationError(c.CommandType())
	if c.ClientID == "" {
		errs.Add("client_id", "is required")
	}
	if c.AccountID == "" {
		errs.Add("account_id", "is required")
	}
	return errs.ErrorOrNil()
}

// AmountCommand carries an account id and an amount.
type AmountCommand struct {
	CommandBase
	AccountID string `json:"account_id"`
	Dollars   int64  `json:"dollars"`
	Cents     int64  `json:"cents"`
}

// Amount returns the command's amount.
func (c AmountCommand) Amount() Amount {
	return NewAmount(c.Dollars, c.Cents)
}

func (c AmountCommand) validate(cmdType string) error {
	errs := NewMultiValidationError(cmdType)
	if c.AccountID == "" {
		errs.Add("account_id", "is required")
	}
	return errs.ErrorOrNil()
}

// CreditAccount adds money to an account.
type CreditAccount AmountCommand

// CommandType implements Command.
func (CreditAccount) CommandType() string { return CommandCreditAccount }

// TargetID implements TargetedCommand.
func (c CreditAccount) TargetID() string { return c.AccountID }

// Validate implements Command.
func (c CreditAccount) Validate() error { return AmountCommand(c).validate(c.CommandType()) }

// DebitAccount takes money from an account.
type DebitAccount AmountCommand

// CommandType implements Command.
func (DebitAccount) CommandType() string { return CommandDebitAccount }

// TargetID implements TargetedCommand.
func (c DebitAccount) TargetID() string { return c.AccountID }

// Validate implements Command.
func (c DebitAccount) Validate() error { return AmountCommand(c).validate(c.CommandType()) }

// ChangeMaximumDebt changes how far below zero an account may go.
type ChangeMaximumDebt AmountCommand

// CommandType implements Command.
func (ChangeMaximumDebt) CommandType() string { return CommandChangeMaximumDebt }

// TargetID implements TargetedCommand.
func (c ChangeMaximumDebt) TargetID() string { return c.AccountID }

// Validate implements Command.
func (c ChangeMaximumDebt) Validate() error { return AmountCommand(c).validate(c.CommandType()) }

package ledger

// AccountAggregateType is the aggregate type recorded for accounts.
const AccountAggregateType = "Account"

// Account is a client's money account.
//
// Invariants: the maximum debt is never negative, and after any successful
// debit the balance is at least -maximumDebt.
type Account struct {
	AggregateBase

	clientID    ID
	name        string
	balance     Amount
	maximumDebt Amount
}

var (
	_ Aggregate    = (*Account)(nil)
	_ EventApplier = (*Account)(nil)
)

func newAccount() *Account {
	return &Account{AggregateBase: NewAggregateBase(AccountAggregateType)}
}

// CreateAccount opens a new account with a zero balance and zero maximum debt.
// The account is not persisted until it is saved.
func CreateAccount(clientID, accountID, operationID ID, name string) (*Account, error) {
	created := AccountCreated{
		EventMeta:   NewEventMeta(operationID),
		ClientID:    clientID.String(),
		AccountID:   accountID.String(),
		AccountName: name,
	}

	account, err := AccountFromStream(NewEventStream(created))
	if err != nil {
		return nil, err
	}
	account.initialize(created)
	return account, nil
}

// AccountFromStream rebuilds an account by replaying its stream.
func AccountFromStream(stream *EventStream) (*Account, error) {
	account := newAccount()
	if err := account.Replay(account, stream); err != nil {
		return nil, err
	}
	return account, nil
}

// ClientID returns the owning client. The relation is a reference only.
func (a *Account) ClientID() ID { return a.clientID }

// Name returns the account name.
func (a *Account) Name() string { return a.name }

// Balance returns the current balance.
func (a *Account) Balance() Amount { return a.balance }

// MaximumDebt returns how far below zero the balance may go.
func (a *Account) MaximumDebt() Amount { return a.maximumDebt }

// Credit adds amount to the balance.
func (a *Account) Credit(amount Amount, operationID ID) error {
	return a.Raise(a, AccountCredited{
		EventMeta: NewEventMeta(operationID),
		AccountID: a.AggregateID().String(),
		Dollars:   amount.Dollars(),
		Cents:     amount.Cents(),
	})
}

// Debit takes amount from the balance. It fails with a ValidationError if
// the balance would drop below -maximumDebt.
func (a *Account) Debit(amount Amount, operationID ID) error {
	if a.balance.Sub(amount).LessThan(a.maximumDebt.Neg()) {
		return NewValidationError("amount", "maximum debt exceeded: debiting "+amount.String()+
			" from balance "+a.balance.String()+" with maximum debt "+a.maximumDebt.String())
	}
	return a.Raise(a, AccountDebited{
		EventMeta: NewEventMeta(operationID),
		AccountID: a.AggregateID().String(),
		Dollars:   amount.Dollars(),
		Cents:     amount.Cents(),
	})
}

// SetMaximumDebt changes the debt ceiling. The amount must not be negative
// and must cover any debt already incurred.
func (a *Account) SetMaximumDebt(amount Amount, operationID ID) error {
	if amount.IsNegative() {
		return NewValidationError("maximum_debt", "cannot be lower than 0, got "+amount.String())
	}
	if a.balance.IsNegative() && a.balance.Neg().GreaterThan(amount) {
		return NewValidationError("maximum_debt", "cannot set maximum debt to "+amount.String()+
			" while balance is "+a.balance.String())
	}
	return a.Raise(a, AccountMaximumDebtChanged{
		EventMeta: NewEventMeta(operationID),
		AccountID: a.AggregateID().String(),
		Dollars:   amount.Dollars(),
		Cents:     amount.Cents(),
	})
}

// When implements EventApplier.
func (a *Account) When(event Event) error {
	switch e := event.(type) {
	case AccountCreated:
		a.SetID(ID{value: e.AccountID})
		a.clientID = ID{value: e.ClientID}
		a.name = e.AccountName
		a.balance = ZeroAmount()
		a.maximumDebt = ZeroAmount()
	case AccountCredited:
		a.balance = a.balance.Add(e.Amount())
	case AccountDebited:
		a.balance = a.balance.Sub(e.Amount())
	case AccountMaximumDebtChanged:
		a.maximumDebt = e.Amount()
	default:
		return NewUnhandledEventError(AccountAggregateType, event.Kind())
	}
	return nil
}

package ledger

// Event kinds. The kind string is what gets persisted as the event name.
const (
	KindAccountCreated            = "AccountCreated"
	KindAccountCredited           = "AccountCredited"
	KindAccountDebited            = "AccountDebited"
	KindAccountMaximumDebtChanged = "AccountMaximumDebtChanged"
	KindClientCreated             = "ClientCreated"
	KindAccountAddedToClient      = "AccountAddedToClient"
	KindAccountRemovedFromClient  = "AccountRemovedFromClient"
)

// =============================================================================
// Account events
// =============================================================================

// AccountCreated opens an account for a client.
type AccountCreated struct {
	EventMeta
	ClientID    string `json:"client_id" msgpack:"client_id"`
	AccountID   string `json:"account_id" msgpack:"account_id"`
	AccountName string `json:"account_name" msgpack:"account_name"`
}

// Kind implements Event.
func (AccountCreated) Kind() string { return KindAccountCreated }

// AccountCredited adds money to the balance.
type AccountCredited struct {
	EventMeta
	AccountID string `json:"account_id" msgpack:"account_id"`
	Dollars   int64  `json:"dollars" msgpack:"dollars"`
	Cents     int64  `json:"cents" msgpack:"cents"`
}

// Kind implements Event.
func (AccountCredited) Kind() string { return KindAccountCredited }

// Amount returns the credited amount.
func (e AccountCredited) Amount() Amount { return NewAmount(e.Dollars, e.Cents) }

// AccountDebited takes money from the balance.
type AccountDebited struct {
	EventMeta
	AccountID string `json:"account_id" msgpack:"account_id"`
	Dollars   int64  `json:"dollars" msgpack:"dollars"`
	Cents     int64  `json:"cents" msgpack:"cents"`
}

// Kind implements Event.
func (AccountDebited) Kind() string { return KindAccountDebited }

// Amount returns the debited amount.
func (e AccountDebited) Amount() Amount { return NewAmount(e.Dollars, e.Cents) }

// AccountMaximumDebtChanged sets how far below zero the balance may go.
type AccountMaximumDebtChanged struct {
	EventMeta
	AccountID string `json:"account_id" msgpack:"account_id"`
	Dollars   int64  `json:"dollars" msgpack:"dollars"`
	Cents     int64  `json:"cents" msgpack:"cents"`
}

// Kind implements Event.
func (AccountMaximumDebtChanged) Kind() string { return KindAccountMaximumDebtChanged }

// Amount returns the new maximum debt.
func (e AccountMaximumDebtChanged) Amount() Amount { return NewAmount(e.Dollars, e.Cents) }

// =============================================================================
// Client events
// =============================================================================

// ClientCreated registers a client.
type ClientCreated struct {
	EventMeta
	ClientID  string `json:"client_id" msgpack:"client_id"`
	SSN       int64  `json:"ssn" msgpack:"ssn"`
	FirstName string `json:"first_name" msgpack:"first_name"`
	LastName  string `json:"last_name" msgpack:"last_name"`
	Birthdate string `json:"birthdate" msgpack:"birthdate"`
}

// Kind implements Event.
func (ClientCreated) Kind() string { return KindClientCreated }

// AccountAddedToClient links an account to a client.
// The dispatcher reacts to it by opening the account itself.
type AccountAddedToClient struct {
	EventMeta
	ClientID    string `json:"client_id" msgpack:"client_id"`
	AccountID   string `json:"account_id" msgpack:"account_id"`
	AccountName string `json:"account_name" msgpack:"account_name"`
}

// Kind implements Event.
func (AccountAddedToClient) Kind() string { return KindAccountAddedToClient }

// AccountRemovedFromClient unlinks an account from a client.
type AccountRemovedFromClient struct {
	EventMeta
	ClientID  string `json:"client_id" msgpack:"client_id"`
	AccountID string `json:"account_id" msgpack:"account_id"`
}

// Kind implements Event.
func (AccountRemovedFromClient) Kind() string { return KindAccountRemovedFromClient }

// Ensure every event type implements Event.
var (
	_ Event = AccountCreated{}
	_ Event = AccountCredited{}
	_ Event = AccountDebited{}
	_ Event = AccountMaximumDebtChanged{}
	_ Event = ClientCreated{}
	_ Event = AccountAddedToClient{}
	_ Event = AccountRemovedFromClient{}
)

package ledger

// ClientAggregateType is the aggregate type recorded for clients.
const ClientAggregateType = "Client"

// Client is a bank customer and the accounts linked to it.
// Linked account ids are references; the client does not own account lifecycles.
type Client struct {
	AggregateBase

	ssn       SSN
	firstName FirstName
	lastName  LastName
	birthdate Birthdate
	accounts  []ID
}

var (
	_ Aggregate    = (*Client)(nil)
	_ EventApplier = (*Client)(nil)
)

func newClient() *Client {
	return &Client{AggregateBase: NewAggregateBase(ClientAggregateType)}
}

// CreateClient registers a new client under a fresh id.
// The client is not persisted until it is saved.
func CreateClient(ssn SSN, firstName FirstName, lastName LastName, birthdate Birthdate, operationID ID) (*Client, error) {
	created := ClientCreated{
		EventMeta: NewEventMeta(operationID),
		ClientID:  NewID().String(),
		SSN:       ssn.Value(),
		FirstName: firstName.String(),
		LastName:  lastName.String(),
		Birthdate: birthdate.Value(),
	}

	client, err := ClientFromStream(NewEventStream(created))
	if err != nil {
		return nil, err
	}
	client.initialize(created)
	return client, nil
}

// ClientFromStream rebuilds a client by replaying its stream.
func ClientFromStream(stream *EventStream) (*Client, error) {
	client := newClient()
	if err := client.Replay(client, stream); err != nil {
		return nil, err
	}
	return client, nil
}

// SSN returns the social security number.
func (c *Client) SSN() SSN { return c.ssn }

// FirstName returns the given name.
func (c *Client) FirstName() FirstName { return c.firstName }

// LastName returns the family name.
func (c *Client) LastName() LastName { return c.lastName }

// Birthdate returns the date of birth.
func (c *Client) Birthdate() Birthdate { return c.birthdate }

// Accounts returns the linked account ids in link order.
func (c *Client) Accounts() []ID {
	out := make([]ID, len(c.accounts))
	copy(out, c.accounts)
	return out
}

// HasAccount reports whether accountID is linked.
func (c *Client) HasAccount(accountID ID) bool {
	return c.indexOf(accountID) >= 0
}

// AddAccount links an account. Linking the same id twice is not rejected here;
// account ids are generated by the caller.
func (c *Client) AddAccount(accountID, operationID ID, accountName string) error {
	return c.Raise(c, AccountAddedToClient{
		EventMeta:   NewEventMeta(operationID),
		ClientID:    c.AggregateID().String(),
		AccountID:   accountID.String(),
		AccountName: accountName,
	})
}

// RemoveAccount unlinks an account. It fails with a ValidationError if the
// account is not linked.
func (c *Client) RemoveAccount(accountID, operationID ID) error {
	if !c.HasAccount(accountID) {
		return NewValidationError("account_id", "account "+accountID.String()+
			" is not linked to client "+c.AggregateID().String())
	}
	return c.Raise(c, AccountRemovedFromClient{
		EventMeta: NewEventMeta(operationID),
		ClientID:  c.AggregateID().String(),
		AccountID: accountID.String(),
	})
}

// When implements EventApplier.
func (c *Client) When(event Event) error {
	switch e := event.(type) {
	case ClientCreated:
		ssn, err := NewSSN(e.SSN)
		if err != nil {
			return err
		}
		first, err := NewFirstName(e.FirstName)
		if err != nil {
			return err
		}
		last, err := NewLastName(e.LastName)
		if err != nil {
			return err
		}
		birthdate, err := ParseBirthdate(e.Birthdate)
		if err != nil {
			return err
		}
		c.SetID(ID{value: e.ClientID})
		c.ssn, c.firstName, c.lastName, c.birthdate = ssn, first, last, birthdate
		c.accounts = nil
	case AccountAddedToClient:
		c.accounts = append(c.accounts, ID{value: e.AccountID})
	case AccountRemovedFromClient:
		if i := c.indexOf(ID{value: e.AccountID}); i >= 0 {
			c.accounts = append(c.accounts[:i], c.accounts[i+1:]...)
		}
	default:
		return NewUnhandledEventError(ClientAggregateType, event.Kind())
	}
	return nil
}

func (c *Client) indexOf(accountID ID) int {
	for i, id := range c.accounts {
		if id == accountID {
			return i
		}
	}
	return -1
}

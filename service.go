package ledger

import (
	"context"
	"errors"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
	"github.com/AshkanYarmoradi/go-ledger/adapters/memory"
)

// Service wires the banking use cases onto a CommandBus.
//
// Every handler loads the target aggregate through a repository, invokes one
// aggregate operation, saves, and hands the committed events to the
// dispatcher. A command whose operation id the aggregate has already
// committed succeeds as a duplicate without touching the log. Commands that
// carry an operation id are also remembered in an IdempotencyStore, so a
// replayed create returns the aggregate the first delivery created.
type Service struct {
	accounts *Repository[*Account]
	clients  *Repository[*Client]

	bus         *CommandBus
	dispatcher  *Dispatcher
	logger      Logger
	idempotency IdempotencyStore

	defaultMaximumDebt *Amount
	linkAccounts       bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger.
func WithServiceLogger(l Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithDispatcher sets the dispatcher committed events are handed to.
func WithDispatcher(d *Dispatcher) ServiceOption {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// WithCommandBus sets the bus the handlers are registered on.
func WithCommandBus(b *CommandBus) ServiceOption {
	return func(s *Service) {
		s.bus = b
	}
}

// WithIdempotencyStore sets where committed operations are remembered.
// The default is an in-memory store.
func WithIdempotencyStore(store IdempotencyStore) ServiceOption {
	return func(s *Service) {
		s.idempotency = store
	}
}

// WithDefaultMaximumDebt sets the maximum debt given to every opened account.
func WithDefaultMaximumDebt(amount Amount) ServiceOption {
	return func(s *Service) {
		s.defaultMaximumDebt = &amount
	}
}

// WithoutAccountLinking stops the service from subscribing its own
// AccountAddedToClient handler. Use it when another process (for instance a
// Kafka consumer) opens linked accounts.
func WithoutAccountLinking() ServiceOption {
	return func(s *Service) {
		s.linkAccounts = false
	}
}

// NewService creates the service and registers its handlers.
func NewService(store EventStore, opts ...ServiceOption) *Service {
	s := &Service{
		logger:       &noopLogger{},
		linkAccounts: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.idempotency == nil {
		s.idempotency = memory.NewIdempotencyStore()
	}
	idempotency := IdempotencyMiddleware(IdempotencyConfig{
		Store:  s.idempotency,
		Logger: s.logger,
	})

	if s.bus == nil {
		s.bus = NewCommandBus(WithMiddleware(
			RecoveryMiddleware(),
			CorrelationIDMiddleware(nil),
			ValidationMiddleware(),
			idempotency,
		))
	} else {
		s.bus.Use(idempotency)
	}
	if s.dispatcher == nil {
		s.dispatcher = NewDispatcher(WithDispatcherLogger(s.logger))
	}

	s.accounts = NewAccountRepository(store, WithRepositoryLogger(s.logger))
	s.clients = NewClientRepository(store, WithRepositoryLogger(s.logger))

	s.bus.Register(NewGenericHandler(s.handleRegisterClient))
	s.bus.Register(NewGenericHandler(s.handleAddAccountToClient))
	s.bus.Register(NewGenericHandler(s.handleRemoveAccountFromClient))
	s.bus.Register(NewGenericHandler(s.handleOpenAccount))
	s.bus.Register(NewGenericHandler(s.handleCreditAccount))
	s.bus.Register(NewGenericHandler(s.handleDebitAccount))
	s.bus.Register(NewGenericHandler(s.handleChangeMaximumDebt))

	if s.linkAccounts {
		s.dispatcher.Subscribe(KindAccountAddedToClient, s.OpenLinkedAccount)
	}

	return s
}

// Bus returns the command bus.
func (s *Service) Bus() *CommandBus {
	return s.bus
}

// Dispatcher returns the dispatcher committed events are handed to.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Accounts returns the account repository.
func (s *Service) Accounts() *Repository[*Account] {
	return s.accounts
}

// Clients returns the client repository.
func (s *Service) Clients() *Repository[*Client] {
	return s.clients
}

// OpenLinkedAccount opens the account announced by an AccountAddedToClient
// event, reusing the event's operation id. Redelivery is harmless: an account
// that already exists counts as opened.
func (s *Service) OpenLinkedAccount(ctx context.Context, event RecordedEvent) error {
	added, ok := event.Event.(AccountAddedToClient)
	if !ok {
		return nil
	}

	_, err := s.bus.Dispatch(ctx, OpenAccount{
		CommandBase: CommandBase{OperationID: added.OperationID()},
		ClientID:    added.ClientID,
		AccountID:   added.AccountID,
		AccountName: added.AccountName,
	})
	if errors.Is(err, ErrAggregateExists) {
		s.logger.Debug("Linked account already open",
			"accountID", added.AccountID,
			"clientID", added.ClientID)
		return nil
	}
	return err
}

// =============================================================================
// Client handlers
// =============================================================================

func (s *Service) handleRegisterClient(ctx context.Context, cmd RegisterClient) (CommandResult, error) {
	ssn, err := NewSSN(cmd.SocialSecurityNumber)
	if err != nil {
		return NewErrorResult(err), err
	}
	first, err := NewFirstName(cmd.FirstName)
	if err != nil {
		return NewErrorResult(err), err
	}
	last, err := NewLastName(cmd.LastName)
	if err != nil {
		return NewErrorResult(err), err
	}
	birthdate, err := ParseBirthdate(cmd.Birthdate)
	if err != nil {
		return NewErrorResult(err), err
	}

	client, err := CreateClient(ssn, first, last, birthdate, IDOrNew(cmd.OperationID))
	if err != nil {
		return NewErrorResult(err), err
	}
	return commit(ctx, s, s.clients, client)
}

func (s *Service) handleAddAccountToClient(ctx context.Context, cmd AddAccountToClient) (CommandResult, error) {
	client, err := s.clients.GetByID(ctx, ID{value: cmd.ClientID})
	if err != nil {
		return NewErrorResult(err), err
	}

	accountID := NewID()
	if err := client.AddAccount(accountID, IDOrNew(cmd.OperationID), cmd.AccountName); err != nil {
		return s.rejected(client.AggregateID(), err)
	}

	result, err := commit(ctx, s, s.clients, client)
	if err != nil {
		return result, err
	}
	result.AggregateID = accountID.String()
	return result, nil
}

func (s *Service) handleRemoveAccountFromClient(ctx context.Context, cmd RemoveAccountFromClient) (CommandResult, error) {
	client, err := s.clients.GetByID(ctx, ID{value: cmd.ClientID})
	if err != nil {
		return NewErrorResult(err), err
	}

	if err := client.RemoveAccount(ID{value: cmd.AccountID}, IDOrNew(cmd.OperationID)); err != nil {
		return s.rejected(client.AggregateID(), err)
	}
	return commit(ctx, s, s.clients, client)
}

// =============================================================================
// Account handlers
// =============================================================================

func (s *Service) handleOpenAccount(ctx context.Context, cmd OpenAccount) (CommandResult, error) {
	account, err := CreateAccount(ID{value: cmd.ClientID}, ID{value: cmd.AccountID}, IDOrNew(cmd.OperationID), cmd.AccountName)
	if err != nil {
		return NewErrorResult(err), err
	}

	if s.defaultMaximumDebt != nil {
		if err := account.SetMaximumDebt(*s.defaultMaximumDebt, NewID()); err != nil {
			return NewErrorResult(err), err
		}
	}
	return commit(ctx, s, s.accounts, account)
}

func (s *Service) handleCreditAccount(ctx context.Context, cmd CreditAccount) (CommandResult, error) {
	return s.updateAccount(ctx, cmd.AccountID, func(a *Account) error {
		return a.Credit(AmountCommand(cmd).Amount(), IDOrNew(cmd.OperationID))
	})
}

func (s *Service) handleDebitAccount(ctx context.Context, cmd DebitAccount) (CommandResult, error) {
	return s.updateAccount(ctx, cmd.AccountID, func(a *Account) error {
		return a.Debit(AmountCommand(cmd).Amount(), IDOrNew(cmd.OperationID))
	})
}

func (s *Service) handleChangeMaximumDebt(ctx context.Context, cmd ChangeMaximumDebt) (CommandResult, error) {
	return s.updateAccount(ctx, cmd.AccountID, func(a *Account) error {
		return a.SetMaximumDebt(AmountCommand(cmd).Amount(), IDOrNew(cmd.OperationID))
	})
}

func (s *Service) updateAccount(ctx context.Context, accountID string, apply func(*Account) error) (CommandResult, error) {
	account, err := s.accounts.GetByID(ctx, ID{value: accountID})
	if err != nil {
		return NewErrorResult(err), err
	}
	if err := apply(account); err != nil {
		return s.rejected(account.AggregateID(), err)
	}
	return commit(ctx, s, s.accounts, account)
}

// =============================================================================
// Helpers
// =============================================================================

// rejected turns an OperationDuplicateError into a successful duplicate result.
func (s *Service) rejected(aggregateID ID, err error) (CommandResult, error) {
	if errors.Is(err, ErrOperationDuplicate) {
		s.logger.Info("Operation already committed",
			"aggregateID", aggregateID.String(),
			"error", err)
		return NewDuplicateResult(aggregateID.String()), nil
	}
	return NewErrorResult(err), err
}

// commit saves agg and hands the committed events to the dispatcher.
// Dispatch failures do not undo the commit; they are logged and the command
// still succeeds.
func commit[T Aggregate](ctx context.Context, s *Service, repo *Repository[T], agg T) (CommandResult, error) {
	recorded, err := repo.SaveAndCollect(ctx, agg)
	if err != nil {
		return NewErrorResult(err), err
	}

	result := NewSuccessResult(agg.AggregateID().String(), adapters.NextVersion(agg.Version()))
	result.Events = recorded

	if err := s.dispatcher.Dispatch(ctx, recorded...); err != nil {
		s.logger.Warn("Dispatch of committed events failed",
			"aggregateID", agg.AggregateID().String(),
			"events", len(recorded),
			"error", err)
	}
	return result, nil
}

package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AshkanYarmoradi/go-ledger"
)

// Balance actions accepted by PATCH /account/:account_id/balance.
const (
	ActionCredit = "credit"
	ActionDebit  = "debit"
)

// Pinger reports storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LedgerHandler serves the banking endpoints.
type LedgerHandler struct {
	svc *ledger.Service
}

func NewLedgerHandler(svc *ledger.Service) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

// =============================================================================
// Requests and responses
// =============================================================================

type registerClientRequest struct {
	SocialSecurityNumber int64  `json:"social_security_number"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	BirthDate            string `json:"birth_date"`
	OperationID          string `json:"operation_id"`
}

type addAccountRequest struct {
	AccountName string `json:"account_name"`
	OperationID string `json:"operation_id"`
}

type balanceRequest struct {
	Action      string `json:"action" binding:"required,oneof=credit debit"`
	Dollars     int64  `json:"dollars"`
	Cents       int64  `json:"cents"`
	OperationID string `json:"operation_id"`
}

type amountRequest struct {
	Dollars     int64  `json:"dollars"`
	Cents       int64  `json:"cents"`
	OperationID string `json:"operation_id"`
}

// CommandResponse is returned by every write endpoint.
type CommandResponse struct {
	ID        string `json:"id"`
	Version   int64  `json:"version,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

// AccountResponse is the replayed state of an account.
type AccountResponse struct {
	ID          string        `json:"id"`
	ClientID    string        `json:"client_id"`
	Name        string        `json:"name"`
	Balance     ledger.Amount `json:"balance"`
	MaximumDebt ledger.Amount `json:"maximum_debt"`
	Version     int64         `json:"version"`
}

// ClientResponse is the replayed state of a client.
type ClientResponse struct {
	ID                   string   `json:"id"`
	SocialSecurityNumber int64    `json:"social_security_number"`
	FirstName            string   `json:"first_name"`
	LastName             string   `json:"last_name"`
	BirthDate            string   `json:"birth_date"`
	Accounts             []string `json:"accounts"`
	Version              int64    `json:"version"`
}

// NewCommandResponse renders a command result.
func NewCommandResponse(result ledger.CommandResult) CommandResponse {
	return CommandResponse{
		ID:        result.AggregateID,
		Version:   result.Version,
		Duplicate: result.Duplicate,
	}
}

// NewAccountResponse renders an account.
func NewAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:          a.AggregateID().String(),
		ClientID:    a.ClientID().String(),
		Name:        a.Name(),
		Balance:     a.Balance(),
		MaximumDebt: a.MaximumDebt(),
		Version:     a.Version(),
	}
}

// NewClientResponse renders a client.
func NewClientResponse(cl *ledger.Client) ClientResponse {
	ids := cl.Accounts()
	accounts := make([]string, len(ids))
	for i, id := range ids {
		accounts[i] = id.String()
	}
	return ClientResponse{
		ID:                   cl.AggregateID().String(),
		SocialSecurityNumber: cl.SSN().Value(),
		FirstName:            cl.FirstName().String(),
		LastName:             cl.LastName().String(),
		BirthDate:            cl.Birthdate().Value(),
		Accounts:             accounts,
		Version:              cl.Version(),
	}
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(err)
		RespondError(c, http.StatusUnprocessableEntity, CodeInvalidRequest, err)
		return false
	}
	return true
}

func (h *LedgerHandler) dispatch(c *gin.Context, cmd ledger.Command) (ledger.CommandResult, bool) {
	result, err := h.svc.Bus().Dispatch(c.Request.Context(), cmd)
	if err != nil {
		respondLedgerError(c, err)
		return result, false
	}
	return result, true
}

// =============================================================================
// Clients
// =============================================================================

// POST /api/v1/client
func (h *LedgerHandler) RegisterClient(c *gin.Context) {
	var req registerClientRequest
	if !bindJSON(c, &req) {
		return
	}

	result, ok := h.dispatch(c, ledger.RegisterClient{
		CommandBase:          ledger.CommandBase{OperationID: req.OperationID},
		SocialSecurityNumber: req.SocialSecurityNumber,
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Birthdate:            req.BirthDate,
	})
	if !ok {
		return
	}

	c.Header("Location", "/api/v1/client/"+result.AggregateID)
	if result.Duplicate {
		RespondOK(c, NewCommandResponse(result))
		return
	}
	c.JSON(http.StatusCreated, NewCommandResponse(result))
}

// GET /api/v1/client/:client_id
func (h *LedgerHandler) GetClient(c *gin.Context) {
	id, err := ledger.ParseID(c.Param("client_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidationFailed, err)
		return
	}

	client, err := h.svc.Clients().GetByID(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, NewClientResponse(client))
}

// POST /api/v1/client/:client_id/account
func (h *LedgerHandler) AddAccount(c *gin.Context) {
	var req addAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	result, ok := h.dispatch(c, ledger.AddAccountToClient{
		CommandBase: ledger.CommandBase{OperationID: req.OperationID},
		ClientID:    c.Param("client_id"),
		AccountName: req.AccountName,
	})
	if !ok {
		return
	}

	c.Header("Location", "/api/v1/account/"+result.AggregateID)
	if result.Duplicate {
		RespondOK(c, NewCommandResponse(result))
		return
	}
	c.JSON(http.StatusCreated, NewCommandResponse(result))
}

// DELETE /api/v1/client/:client_id/account/:account_id
func (h *LedgerHandler) RemoveAccount(c *gin.Context) {
	result, ok := h.dispatch(c, ledger.RemoveAccountFromClient{
		CommandBase: ledger.CommandBase{OperationID: c.Query("operation_id")},
		ClientID:    c.Param("client_id"),
		AccountID:   c.Param("account_id"),
	})
	if !ok {
		return
	}

	if result.Duplicate {
		RespondOK(c, NewCommandResponse(result))
		return
	}
	c.Status(http.StatusNoContent)
}

// =============================================================================
// Accounts
// =============================================================================

// GET /api/v1/account/:account_id
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	id, err := ledger.ParseID(c.Param("account_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidationFailed, err)
		return
	}

	account, err := h.svc.Accounts().GetByID(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, NewAccountResponse(account))
}

// PATCH /api/v1/account/:account_id/balance
func (h *LedgerHandler) ChangeBalance(c *gin.Context) {
	var req balanceRequest
	if !bindJSON(c, &req) {
		return
	}

	body := ledger.AmountCommand{
		CommandBase: ledger.CommandBase{OperationID: req.OperationID},
		AccountID:   c.Param("account_id"),
		Dollars:     req.Dollars,
		Cents:       req.Cents,
	}

	var cmd ledger.Command = ledger.CreditAccount(body)
	if req.Action == ActionDebit {
		cmd = ledger.DebitAccount(body)
	}

	result, ok := h.dispatch(c, cmd)
	if !ok {
		return
	}
	RespondOK(c, NewCommandResponse(result))
}

// PUT /api/v1/account/:account_id/maximum-debt
func (h *LedgerHandler) ChangeMaximumDebt(c *gin.Context) {
	var req amountRequest
	if !bindJSON(c, &req) {
		return
	}

	result, ok := h.dispatch(c, ledger.ChangeMaximumDebt{
		CommandBase: ledger.CommandBase{OperationID: req.OperationID},
		AccountID:   c.Param("account_id"),
		Dollars:     req.Dollars,
		Cents:       req.Cents,
	})
	if !ok {
		return
	}
	RespondOK(c, NewCommandResponse(result))
}

// =============================================================================
// Health
// =============================================================================

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// GET /healthz
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			RespondError(c, http.StatusServiceUnavailable, "store_unavailable", err)
			return
		}
	}
	c.String(http.StatusOK, "ok")
}

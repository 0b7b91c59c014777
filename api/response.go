package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AshkanYarmoradi/go-ledger"
)

// Error codes returned in ErrorEnvelope.
const (
	CodeNotFound            = "not_found"
	CodeConcurrencyConflict = "concurrency_conflict"
	CodeValidationFailed    = "validation_failed"
	CodeInvalidRequest      = "invalid_request"
	CodeWrongAggregateType  = "wrong_aggregate_type"
	CodeTimeout             = "timeout"
	CodeInternal            = "internal_error"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// StatusForError maps a ledger error to an HTTP status and error code.
// Loading an aggregate under the wrong type (an account id used as a client)
// replays an event kind the aggregate does not handle; that is reported as 404.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ledger.ErrUnhandledEvent):
		return http.StatusNotFound, CodeWrongAggregateType
	case errors.Is(err, ledger.ErrConcurrencyConflict):
		return http.StatusConflict, CodeConcurrencyConflict
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest, CodeValidationFailed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func respondLedgerError(c *gin.Context, err error) {
	status, code := StatusForError(err)
	_ = c.Error(err)
	RespondError(c, status, code, err)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AshkanYarmoradi/go-ledger"
	"github.com/AshkanYarmoradi/go-ledger/adapters/memory"
	"github.com/AshkanYarmoradi/go-ledger/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router  *gin.Engine
	adapter *memory.MemoryAdapter
	logs    *observer.ObservedLogs
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.NewWithCore(core)

	adapter := memory.NewAdapter()
	store := ledger.NewStore(adapter)
	svc := ledger.NewService(store, ledger.WithServiceLogger(logger))

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "ledger_sample_total"}))

	return &testEnv{
		router: NewRouter(RouterConfig{
			Service:        svc,
			Store:          store,
			Logger:         logger,
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
		adapter: adapter,
		logs:    logs,
	}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var alan = map[string]any{
	"social_security_number": 123456789,
	"first_name":             "Alan",
	"last_name":              "Turing",
	"birth_date":             "23/06/1912",
}

func (e *testEnv) createClient(t *testing.T) string {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/client", alan)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[CommandResponse](t, rec).ID
}

func (e *testEnv) addAccount(t *testing.T, clientID string) string {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/client/"+clientID+"/account", map[string]any{"account_name": "checking"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[CommandResponse](t, rec).ID
}

// =============================================================================
// Clients
// =============================================================================

func TestRegisterClient(t *testing.T) {
	t.Run("creates client", func(t *testing.T) {
		env := setup(t)

		rec := env.do(http.MethodPost, "/api/v1/client", alan)

		require.Equal(t, http.StatusCreated, rec.Code)
		body := decode[CommandResponse](t, rec)
		assert.NotEmpty(t, body.ID)
		assert.Equal(t, int64(1), body.Version)
		assert.Equal(t, "/api/v1/client/"+body.ID, rec.Header().Get("Location"))

		rec = env.do(http.MethodGet, rec.Header().Get("Location"), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		client := decode[ClientResponse](t, rec)
		assert.Equal(t, int64(123456789), client.SocialSecurityNumber)
		assert.Equal(t, "Alan", client.FirstName)
		assert.Equal(t, "23/06/1912", client.BirthDate)
		assert.Empty(t, client.Accounts)
	})

	t.Run("replayed operation returns the first client", func(t *testing.T) {
		env := setup(t)
		body := map[string]any{"operation_id": "op-register"}
		for k, v := range alan {
			body[k] = v
		}

		rec := env.do(http.MethodPost, "/api/v1/client", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		first := decode[CommandResponse](t, rec)

		rec = env.do(http.MethodPost, "/api/v1/client", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		second := decode[CommandResponse](t, rec)

		assert.True(t, second.Duplicate)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "/api/v1/client/"+first.ID, rec.Header().Get("Location"))
	})

	t.Run("rejects short ssn", func(t *testing.T) {
		env := setup(t)
		body := map[string]any{"social_security_number": 12345, "first_name": "A", "last_name": "B", "birth_date": "01/01/2000"}

		rec := env.do(http.MethodPost, "/api/v1/client", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, CodeValidationFailed, decode[ErrorEnvelope](t, rec).Error.Code)
	})

	t.Run("rejects missing names", func(t *testing.T) {
		env := setup(t)

		rec := env.do(http.MethodPost, "/api/v1/client", map[string]any{"social_security_number": 123456789})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[ErrorEnvelope](t, rec).Error.Message, "first_name")
	})

	t.Run("malformed body is unprocessable", func(t *testing.T) {
		env := setup(t)

		rec := env.do(http.MethodPost, "/api/v1/client", `{"social_security_number": "abc"`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, CodeInvalidRequest, decode[ErrorEnvelope](t, rec).Error.Code)
	})
}

func TestGetClient_NotFound(t *testing.T) {
	env := setup(t)

	rec := env.do(http.MethodGet, "/api/v1/client/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorEnvelope](t, rec).Error.Code)
}

func TestAddAndRemoveAccount(t *testing.T) {
	env := setup(t)
	clientID := env.createClient(t)

	rec := env.do(http.MethodPost, "/api/v1/client/"+clientID+"/account",
		map[string]any{"account_name": "savings", "operation_id": "op-add"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	accountID := decode[CommandResponse](t, rec).ID
	assert.Equal(t, "/api/v1/account/"+accountID, rec.Header().Get("Location"))

	t.Run("linked account is opened", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/account/"+accountID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		account := decode[AccountResponse](t, rec)
		assert.Equal(t, clientID, account.ClientID)
		assert.Equal(t, "savings", account.Name)
		assert.True(t, account.Balance.IsZero())
	})

	t.Run("client lists the account", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/client/"+clientID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{accountID}, decode[ClientResponse](t, rec).Accounts)
	})

	t.Run("replayed add is a duplicate", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/v1/client/"+clientID+"/account",
			map[string]any{"account_name": "savings", "operation_id": "op-add"})

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[CommandResponse](t, rec)
		assert.True(t, body.Duplicate)
		assert.Equal(t, accountID, body.ID)
		assert.Equal(t, "/api/v1/account/"+accountID, rec.Header().Get("Location"))
	})

	t.Run("remove unlinks", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/api/v1/client/"+clientID+"/account/"+accountID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(http.MethodGet, "/api/v1/client/"+clientID, nil)
		assert.Empty(t, decode[ClientResponse](t, rec).Accounts)
	})

	t.Run("removing an unlinked account is rejected", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/api/v1/client/"+clientID+"/account/"+accountID, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// =============================================================================
// Accounts
// =============================================================================

func TestChangeBalance(t *testing.T) {
	env := setup(t)
	accountID := env.addAccount(t, env.createClient(t))
	path := "/api/v1/account/" + accountID

	rec := env.do(http.MethodPatch, path+"/balance", map[string]any{"action": "credit", "dollars": 10, "cents": 50, "operation_id": "op-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[CommandResponse](t, rec).Duplicate)

	t.Run("replayed credit is a duplicate", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path+"/balance", map[string]any{"action": "credit", "dollars": 10, "cents": 50, "operation_id": "op-1"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[CommandResponse](t, rec).Duplicate)

		account := decode[AccountResponse](t, env.do(http.MethodGet, path, nil))
		assert.Equal(t, ledger.NewAmount(10, 50), account.Balance)
	})

	t.Run("debit within balance", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path+"/balance", map[string]any{"action": "debit", "dollars": 0, "cents": 50})
		require.Equal(t, http.StatusOK, rec.Code)

		account := decode[AccountResponse](t, env.do(http.MethodGet, path, nil))
		assert.Equal(t, ledger.NewAmount(10, 0), account.Balance)
	})

	t.Run("debit past maximum debt", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path+"/balance", map[string]any{"action": "debit", "dollars": 11})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[ErrorEnvelope](t, rec).Error.Message, "maximum debt exceeded")
	})

	t.Run("unknown action", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path+"/balance", map[string]any{"action": "steal", "dollars": 1})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("missing account", func(t *testing.T) {
		rec := env.do(http.MethodPatch, "/api/v1/account/missing/balance", map[string]any{"action": "credit", "dollars": 1})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestChangeMaximumDebt(t *testing.T) {
	env := setup(t)
	accountID := env.addAccount(t, env.createClient(t))
	path := "/api/v1/account/" + accountID

	rec := env.do(http.MethodPut, path+"/maximum-debt", map[string]any{"dollars": 100})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPatch, path+"/balance", map[string]any{"action": "debit", "dollars": 60})
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("cannot lower below current debt", func(t *testing.T) {
		rec := env.do(http.MethodPut, path+"/maximum-debt", map[string]any{"dollars": 50})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("cannot be negative", func(t *testing.T) {
		rec := env.do(http.MethodPut, path+"/maximum-debt", map[string]any{"dollars": -1})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	account := decode[AccountResponse](t, env.do(http.MethodGet, path, nil))
	assert.Equal(t, ledger.NewAmount(-60, 0), account.Balance)
	assert.Equal(t, ledger.NewAmount(100, 0), account.MaximumDebt)
}

func TestGetAccount_WrongAggregateType(t *testing.T) {
	env := setup(t)
	clientID := env.createClient(t)

	rec := env.do(http.MethodGet, "/api/v1/account/"+clientID, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeWrongAggregateType, decode[ErrorEnvelope](t, rec).Error.Code)
}

// =============================================================================
// Infrastructure
// =============================================================================

func TestHealthCheck(t *testing.T) {
	env := setup(t)

	rec := env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	require.NoError(t, env.adapter.Close())
	rec = env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setup(t)

	rec := env.do(http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ledger_sample_total")
}

func TestRequestContext(t *testing.T) {
	t.Run("echoes request id", func(t *testing.T) {
		env := setup(t)
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(HeaderRequestID, "req-42")
		rec := httptest.NewRecorder()

		env.router.ServeHTTP(rec, req)

		assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))
		assert.Equal(t, "req-42", rec.Header().Get(HeaderTraceID))
	})

	t.Run("request id becomes correlation id", func(t *testing.T) {
		r := gin.New()
		r.Use(AttachRequestContext())
		var seen string
		r.GET("/sample", func(c *gin.Context) {
			seen = ledger.CorrelationIDFromContext(c.Request.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/sample", nil)
		req.Header.Set(HeaderRequestID, "corr-7")
		r.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "corr-7", seen)
	})

	t.Run("generates request id", func(t *testing.T) {
		env := setup(t)
		rec := env.do(http.MethodGet, "/healthz", nil)
		assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	})
}

func TestRequestLogger(t *testing.T) {
	env := setup(t)

	env.do(http.MethodGet, "/healthz", nil)
	env.do(http.MethodGet, "/api/v1/client/missing", nil)

	requests := env.logs.FilterMessage("HTTP request").All()
	require.Len(t, requests, 2)

	assert.Equal(t, zapcore.InfoLevel, requests[0].Level)
	assert.Equal(t, "/healthz", requests[0].ContextMap()["path"])

	assert.Equal(t, zapcore.WarnLevel, requests[1].Level)
	assert.Equal(t, "/api/v1/client/:client_id", requests[1].ContextMap()["path"])
	assert.True(t, strings.Contains(requests[1].ContextMap()["error"].(string), "not found"))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", ledger.NewNotFoundError("a"), http.StatusNotFound, CodeNotFound},
		{"concurrency", ledger.NewConcurrencyError("a", 1, 2), http.StatusConflict, CodeConcurrencyConflict},
		{"validation", ledger.NewValidationError("amount", "bad"), http.StatusBadRequest, CodeValidationFailed},
		{"wrong aggregate", ledger.NewUnhandledEventError("Account", ledger.KindClientCreated), http.StatusNotFound, CodeWrongAggregateType},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := StatusForError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

// Package api exposes the ledger over HTTP with gin.
package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"github.com/AshkanYarmoradi/go-ledger"
)

type RouterConfig struct {
	Service *ledger.Service
	Store   Pinger
	Logger  ledger.Logger

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	// TracerProvider enables otelgin request spans when set.
	TracerProvider trace.TracerProvider
	ServiceName    string

	// AllowOrigins enables CORS for the listed origins.
	AllowOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracerProvider != nil {
		name := cfg.ServiceName
		if name == "" {
			name = "ledger"
		}
		r.Use(otelgin.Middleware(name, otelgin.WithTracerProvider(cfg.TracerProvider)))
	}
	r.Use(AttachRequestContext())
	r.Use(RequestLogger(cfg.Logger))
	if len(cfg.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
			AllowHeaders:  []string{"Content-Type", HeaderRequestID},
			ExposeHeaders: []string{"Location", HeaderRequestID, HeaderTraceID},
		}))
	}

	// Health
	r.GET("/healthz", NewHealthHandler(cfg.Store).HealthCheck)
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	if cfg.Service == nil {
		return r
	}

	h := NewLedgerHandler(cfg.Service)
	v1 := r.Group("/api/v1")
	{
		// Clients
		v1.POST("/client", h.RegisterClient)
		v1.GET("/client/:client_id", h.GetClient)
		v1.POST("/client/:client_id/account", h.AddAccount)
		v1.DELETE("/client/:client_id/account/:account_id", h.RemoveAccount)

		// Accounts
		v1.GET("/account/:account_id", h.GetAccount)
		v1.PATCH("/account/:account_id/balance", h.ChangeBalance)
		v1.PUT("/account/:account_id/maximum-debt", h.ChangeMaximumDebt)
	}

	return r
}

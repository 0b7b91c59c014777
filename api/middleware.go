package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/AshkanYarmoradi/go-ledger"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderTraceID   = "X-Trace-Id"

	contextKeyRequestID = "request_id"
	contextKeyTraceID   = "trace_id"
)

// AttachRequestContext assigns request and trace ids. The request id becomes
// the correlation id of every command dispatched while serving the request.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		traceID := strings.TrimSpace(c.GetHeader(HeaderTraceID))
		if traceID == "" {
			spanCtx := trace.SpanContextFromContext(c.Request.Context())
			if spanCtx.HasTraceID() {
				traceID = spanCtx.TraceID().String()
			}
		}
		if traceID == "" {
			traceID = reqID
		}

		ctx := ledger.WithCorrelationID(c.Request.Context(), reqID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextKeyRequestID, reqID)
		c.Set(contextKeyTraceID, traceID)
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Writer.Header().Set(HeaderTraceID, traceID)
		c.Next()
	}
}

// RequestLogger logs one line per request: errors for 5xx, warnings for 4xx.
func RequestLogger(log ledger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if reqID := c.GetString(contextKeyRequestID); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if traceID := c.GetString(contextKeyTraceID); traceID != "" {
			fields = append(fields, "trace_id", traceID)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, "error", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

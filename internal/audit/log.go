// Package audit emits structured audit events for authentication activity.
// Events are keyed by account id; emails and credentials never appear.
package audit

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pmohq/pmo-api/internal/auth"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Auditor writes audit events through the injected logger.
type Auditor struct {
	log *zap.Logger
}

// NewAuditor wraps the service logger for audit output.
func NewAuditor(log *zap.Logger) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{log: log.Named("audit")}
}

// Event records an audit event enriched with the request id and acting
// account id from the context.
func (a *Auditor) Event(ctx context.Context, event string, fields ...zap.Field) {
	event = strings.TrimSpace(event)
	if event == "" {
		return
	}
	enriched := make([]zap.Field, 0, len(fields)+2)
	if rid := RequestIDFromContext(ctx); rid != "" {
		enriched = append(enriched, zap.String("request_id", rid))
	}
	if principal, ok := auth.PrincipalFromContext(ctx); ok && principal.Account != nil {
		enriched = append(enriched, zap.String("actor_account_id", principal.Account.ID))
	}
	enriched = append(enriched, fields...)
	a.log.Info(event, enriched...)
}

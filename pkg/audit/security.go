// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/auth"
	"github.com/ekaya-inc/query-estimator/pkg/middleware"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when a catalog or schema name fails the injection screen.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventStatementRejected is logged when the submitted SQL is refused before EXPLAIN.
	EventStatementRejected SecurityEventType = "statement_rejected"
	// EventEstimate is logged for every completed estimate.
	EventEstimate SecurityEventType = "estimate"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	EventID    uuid.UUID         `json:"event_id"`
	Timestamp  time.Time         `json:"timestamp"`
	EventType  SecurityEventType `json:"event_type"`
	DatabaseID int64             `json:"database_id"`
	RequestID  string            `json:"request_id,omitempty"`
	UserID     string            `json:"user_id,omitempty"`
	Details    any               `json:"details"`
	Severity   string            `json:"severity"` // info, warning, critical
}

// InjectionDetails contains specifics of a rejected namespace parameter.
type InjectionDetails struct {
	ParamName   string `json:"param_name"`
	ParamValue  string `json:"param_value"`
	Fingerprint string `json:"fingerprint,omitempty"` // libinjection fingerprint for pattern analysis
}

// EstimateDetails summarizes a completed estimate.
type EstimateDetails struct {
	Engine        string `json:"engine"`
	ResourceLevel string `json:"resource_level"`
	Warnings      int    `json:"warnings"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates a new security auditor under the "security_audit"
// logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		now:    time.Now,
	}
}

// LogInjectionAttempt records a catalog or schema value rejected by the
// injection screen. Logged at ERROR level with "critical" severity.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, databaseID int64, details InjectionDetails) {
	event := a.newEvent(ctx, EventSQLInjectionAttempt, databaseID, details, "critical")

	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", marshalEvent(event)),
		zap.Int64("database_id", databaseID),
		zap.String("param_name", details.ParamName),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("user_id", event.UserID),
		zap.String("severity", event.Severity),
	)
}

// LogStatementRejected records SQL refused before it reached the engine, such
// as a multi-statement batch. These are usually user errors, so WARN.
func (a *SecurityAuditor) LogStatementRejected(ctx context.Context, databaseID int64, reason string) {
	event := a.newEvent(ctx, EventStatementRejected, databaseID, map[string]string{"error": reason}, "warning")

	a.logger.Warn("Statement rejected",
		zap.String("event_json", marshalEvent(event)),
		zap.Int64("database_id", databaseID),
		zap.String("error", reason),
		zap.String("user_id", event.UserID),
		zap.String("severity", event.Severity),
	)
}

// LogEstimate records a completed estimate at DEBUG level.
func (a *SecurityAuditor) LogEstimate(ctx context.Context, databaseID int64, details EstimateDetails) {
	event := a.newEvent(ctx, EventEstimate, databaseID, details, "info")

	a.logger.Debug("Estimate completed",
		zap.String("event_json", marshalEvent(event)),
		zap.Int64("database_id", databaseID),
		zap.String("resource_level", details.ResourceLevel),
		zap.String("user_id", event.UserID),
	)
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, databaseID int64, details any, severity string) SecurityEvent {
	return SecurityEvent{
		EventID:    uuid.New(),
		Timestamp:  a.now().UTC(),
		EventType:  eventType,
		DatabaseID: databaseID,
		RequestID:  middleware.RequestIDFromContext(ctx),
		UserID:     auth.GetUserIDFromContext(ctx),
		Details:    details,
		Severity:   severity,
	}
}

// marshalEvent ignores the error: every field is a plain value.
func marshalEvent(event SecurityEvent) string {
	b, _ := json.Marshal(event)
	return string(b)
}

package authcore

import (
	"context"
	"io"
	"time"

	"github.com/tidelock/authcore/internal/audit"
)

// AuditEvent is the record delivered to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = audit.Sink

// NewChannelAuditSink returns a sink that buffers events in a channel.
func NewChannelAuditSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterAuditSink returns a sink writing one JSON object per line.
func NewJSONWriterAuditSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

const (
	auditEventSessionCreated      = "session_created"
	auditEventSessionCreateFailed = "session_create_failed"
	auditEventRefreshSuccess      = "refresh_success"
	auditEventRefreshInvalid      = "refresh_invalid"
	auditEventRefreshReuse        = "refresh_reuse_detected"
	auditEventRefreshRateLimited  = "refresh_rate_limited"
	auditEventLogout              = "logout"
	auditEventFamilyRevoked       = "family_revoked"
	auditEventPermissionDenied    = "permission_denied"
	auditEventKeyRotated          = "key_rotated"
	auditEventPolicyCreated       = "policy_created"
	auditEventPolicyUpdated       = "policy_updated"
	auditEventPolicyDeleted       = "policy_deleted"
)

// emitAudit builds the event lazily: metaFn runs only when the
// dispatcher is live, keeping the hot path allocation-free when audit
// is disabled.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool,
	principalID, tenantID, orgID, sessionID, family string, cause error,
	metaFn func() map[string]string) {

	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:      time.Now(),
		EventType:      eventType,
		PrincipalID:    principalID,
		TenantID:       tenantID,
		OrganizationID: orgID,
		SessionID:      sessionID,
		Family:         family,
		IP:             clientIPFromContext(ctx),
		Success:        success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metaFn != nil {
		event.Metadata = metaFn()
	}

	e.audit.Emit(ctx, event)
}

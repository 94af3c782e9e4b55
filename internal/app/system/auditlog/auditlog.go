// internal/app/system/auditlog/auditlog.go

// Package auditlog records administration actions to MongoDB and the
// structured log. A nil *Logger is a no-op, so handlers never need to
// check whether auditing is enabled.
package auditlog

import (
	"context"
	"net/http"

	"github.com/comptoirhq/comptoir/internal/app/store/audit"
	"github.com/comptoirhq/comptoir/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Logger writes audit events to the audit store and mirrors them to zap.
// Store failures are logged and swallowed: auditing never fails the
// request that triggered it.
type Logger struct {
	store *audit.Store
	log   *zap.Logger
}

// New creates an audit logger.
func New(store *audit.Store, log *zap.Logger) *Logger {
	return &Logger{store: store, log: log}
}

// Log records one event.
func (l *Logger) Log(ctx context.Context, e audit.Event) {
	if l == nil {
		return
	}

	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("event_type", e.EventType),
		zap.String("actor_id", e.ActorID),
		zap.Bool("success", e.Success),
	}
	if e.TargetID != "" {
		fields = append(fields, zap.String("target_id", e.TargetID))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	if e.Success {
		l.log.Info("audit event", fields...)
	} else {
		l.log.Warn("audit event", fields...)
	}

	if err := l.store.Log(ctx, e); err != nil {
		l.log.Error("failed to store audit event",
			zap.Error(err),
			zap.String("event_type", e.EventType))
	}
}

// Recent returns the newest stored events, most recent first. A nil Logger
// returns an empty trail.
func (l *Logger) Recent(ctx context.Context, limit int64) ([]audit.Event, error) {
	if l == nil {
		return []audit.Event{}, nil
	}
	return l.store.Recent(ctx, limit)
}

// AdminBootstrapped records the first caller claiming the admin role.
func (l *Logger) AdminBootstrapped(ctx context.Context, r *http.Request, actorID, actorEmail string) {
	l.Log(ctx, audit.Event{
		EventType:  audit.EventAdminBootstrapped,
		ActorID:    actorID,
		ActorEmail: actorEmail,
		IP:         ratelimit.ClientIP(r),
		Success:    true,
	})
}

// UserCreated records the creation of a provider identity and its role row.
func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, targetID, role string) {
	l.Log(ctx, audit.Event{
		EventType: audit.EventUserCreated,
		ActorID:   actorID,
		TargetID:  targetID,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
		Details:   map[string]string{"role": role},
	})
}

// UserDeleted records the removal of a provider identity.
func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, targetID string) {
	l.Log(ctx, audit.Event{
		EventType: audit.EventUserDeleted,
		ActorID:   actorID,
		TargetID:  targetID,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
	})
}

// PermissionUpdated records a change to a role's module grant.
func (l *Logger) PermissionUpdated(ctx context.Context, r *http.Request, actorID, role, module string, canAccess bool) {
	details := map[string]string{"role": role, "module": module, "can_access": "false"}
	if canAccess {
		details["can_access"] = "true"
	}
	l.Log(ctx, audit.Event{
		EventType: audit.EventPermissionUpdated,
		ActorID:   actorID,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
		Details:   details,
	})
}

// Package gates provides handler-level authorization checks for JSON
// handlers.
//
// Route-level checks (authn.RequireAuthenticated, RequireModule) cover whole
// route groups; gates are for handlers that need a different check than
// their group — typically admin-only actions inside a mixed-access module,
// like deciding a leave request. Gates write the JSON error envelope
// themselves and report OK=false so the handler can return immediately.
package gates

import (
	"net/http"

	"github.com/comptoirhq/comptoir/internal/app/system/apierrors"
	"github.com/comptoirhq/comptoir/internal/app/system/authz"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"go.uber.org/zap"
)

// Result carries the caller context out of a gate check.
type Result struct {
	Role   models.Role
	Name   string
	UserID string
	OK     bool
}

// RequireAuth ensures a caller is authenticated.
func RequireAuth(w http.ResponseWriter, r *http.Request, log *zap.Logger) Result {
	role, name, uid, ok := authz.CallerCtx(r)
	if !ok {
		apierrors.Write(w, log, apierrors.New(apierrors.Unauthenticated, "Unauthorized"))
		return Result{OK: false}
	}
	return Result{Role: role, Name: name, UserID: uid, OK: true}
}

// RequireAdmin ensures the caller is authenticated and an admin.
func RequireAdmin(w http.ResponseWriter, r *http.Request, log *zap.Logger) Result {
	role, name, uid, ok := authz.CallerCtx(r)
	if !ok {
		apierrors.Write(w, log, apierrors.New(apierrors.Unauthenticated, "Unauthorized"))
		return Result{OK: false}
	}
	if role != models.RoleAdmin {
		apierrors.Write(w, log, apierrors.New(apierrors.Forbidden, "Unauthorized: Admin privileges required"))
		return Result{OK: false}
	}
	return Result{Role: role, Name: name, UserID: uid, OK: true}
}

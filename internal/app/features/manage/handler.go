// internal/app/features/manage/handler.go

// Package manage is the administration gate: one POST endpoint that accepts
// `{action, data?}` envelopes and executes exactly one privileged action per
// request.
//
// Admin status is recomputed from the role store on every call. When no admin
// exists anywhere, the first authenticated caller claims the bootstrap and
// becomes admin; the claim is a single conditional write, so concurrent first
// callers elect exactly one winner. Every other caller is rejected for every
// action, including the read-only ones.
package manage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/comptoirhq/comptoir/internal/app/system/apierrors"
	"github.com/comptoirhq/comptoir/internal/app/system/auditlog"
	"github.com/comptoirhq/comptoir/internal/app/system/authn"
	"github.com/comptoirhq/comptoir/internal/app/system/idp"
	"github.com/comptoirhq/comptoir/internal/app/system/normalize"
	"github.com/comptoirhq/comptoir/internal/app/system/timeouts"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"go.uber.org/zap"
)

// Action tags accepted by the gate.
const (
	ActionCreateUser       = "CREATE_USER"
	ActionListUsers        = "LIST_USERS"
	ActionDeleteUser       = "DELETE_USER"
	ActionGetPermissions   = "GET_PERMISSIONS"
	ActionUpdatePermission = "UPDATE_PERMISSION"
)

// msgAdminRequired is the privilege-rejection message non-admin callers see.
const msgAdminRequired = "Unauthorized: Admin privileges required"

// Directory is the slice of the identity provider the gate needs.
type Directory interface {
	CreateUser(ctx context.Context, p idp.CreateUserParams) (idp.Identity, error)
	ListUsers(ctx context.Context) ([]idp.Identity, error)
	DeleteUser(ctx context.Context, userID string) error
}

// RoleStore is the slice of the role store the gate needs.
type RoleStore interface {
	Set(ctx context.Context, userID string, role models.Role) error
	Delete(ctx context.Context, userID string) error
	HasAdmin(ctx context.Context) (bool, error)
	All(ctx context.Context) (map[string]models.Role, error)
	ClaimFirstAdmin(ctx context.Context, userID string) (bool, error)
}

// PermissionStore is the slice of the permission store the gate needs.
type PermissionStore interface {
	GrantsByRole(ctx context.Context) (map[models.Role][]string, error)
	Upsert(ctx context.Context, role models.Role, module string, canAccess bool) (id string, inserted bool, err error)
}

// Handler executes gate actions.
type Handler struct {
	dir   Directory
	roles RoleStore
	perms PermissionStore
	audit *auditlog.Logger
	log   *zap.Logger
}

// NewHandler creates the gate handler. audit may be nil to disable auditing.
func NewHandler(dir Directory, roles RoleStore, perms PermissionStore, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{dir: dir, roles: roles, perms: perms, audit: audit, log: logger}
}

// request is the action envelope.
type request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// ServeAction handles POST /manage.
func (h *Handler) ServeAction(w http.ResponseWriter, r *http.Request) {
	caller, ok := authn.CurrentCaller(r)
	if !ok {
		apierrors.Write(w, h.log, apierrors.New(apierrors.Unauthenticated, "Unauthorized"))
		return
	}

	// One deadline covers the whole action, provider round-trips included.
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()
	r = r.WithContext(ctx)

	isAdmin, err := h.resolveAdmin(r, caller)
	if err != nil {
		apierrors.Write(w, h.log, err)
		return
	}
	if !isAdmin {
		apierrors.Write(w, h.log, apierrors.New(apierrors.Forbidden, msgAdminRequired))
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.Write(w, h.log, apierrors.Wrap(apierrors.Validation, "invalid request body", err))
		return
	}

	var out any
	switch req.Action {
	case ActionCreateUser:
		out, err = h.createUser(r, caller, req.Data)
	case ActionListUsers:
		out, err = h.listUsers(r.Context())
	case ActionDeleteUser:
		out, err = h.deleteUser(r, caller, req.Data)
	case ActionGetPermissions:
		out, err = h.getPermissions(r.Context())
	case ActionUpdatePermission:
		out, err = h.updatePermission(r, caller, req.Data)
	default:
		err = apierrors.New(apierrors.UnknownAction, "Unknown action")
	}

	if err != nil {
		apierrors.Write(w, h.log, err)
		return
	}
	writeJSON(w, out)
}

// auditTrailLimit caps how many events one listing returns.
const auditTrailLimit = 100

// AuditTrail handles GET /manage/audit: the newest audit events, most recent
// first. Admins only; unlike ServeAction it never takes part in the bootstrap
// race, since reading the trail before any admin exists is meaningless.
func (h *Handler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	caller, ok := authn.CurrentCaller(r)
	if !ok {
		apierrors.Write(w, h.log, apierrors.New(apierrors.Unauthenticated, "Unauthorized"))
		return
	}
	if caller.Role != models.RoleAdmin {
		apierrors.Write(w, h.log, apierrors.New(apierrors.Forbidden, msgAdminRequired))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.audit.Recent(ctx, auditTrailLimit)
	if err != nil {
		apierrors.Write(w, h.log, err)
		return
	}
	writeJSON(w, events)
}

// resolveAdmin decides whether the caller may use the gate. A caller with
// the admin role passes directly. When no admin row exists anywhere, the
// caller races for the bootstrap claim; the winner gets the admin role row
// and proceeds as admin in the same request.
func (h *Handler) resolveAdmin(r *http.Request, caller *authn.Caller) (bool, error) {
	ctx := r.Context()
	if caller.Role == models.RoleAdmin {
		return true, nil
	}

	hasAdmin, err := h.roles.HasAdmin(ctx)
	if err != nil {
		return false, err
	}
	if hasAdmin {
		return false, nil
	}

	won, err := h.roles.ClaimFirstAdmin(ctx, caller.ID)
	if err != nil {
		return false, err
	}
	if !won {
		return false, nil
	}

	if err := h.roles.Set(ctx, caller.ID, models.RoleAdmin); err != nil {
		return false, err
	}
	h.log.Info("bootstrapped first admin",
		zap.String("user_id", caller.ID),
		zap.String("email", caller.Email))
	h.audit.AdminBootstrapped(ctx, r, caller.ID, caller.Email)
	return true, nil
}

/* -------------------------------------------------------------------------- */
/* Actions                                                                    */
/* -------------------------------------------------------------------------- */

type createUserData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type userView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func (h *Handler) createUser(r *http.Request, caller *authn.Caller, data json.RawMessage) (any, error) {
	ctx := r.Context()

	var in createUserData
	if err := decodeData(data, &in); err != nil {
		return nil, err
	}

	in.Email = normalize.Email(in.Email)
	in.Name = normalize.Name(in.Name)
	role := models.Role(normalize.Role(in.Role))

	switch {
	case in.Email == "":
		return nil, apierrors.New(apierrors.Validation, "email is required")
	case in.Password == "":
		return nil, apierrors.New(apierrors.Validation, "password is required")
	case in.Name == "":
		return nil, apierrors.New(apierrors.Validation, "name is required")
	case !role.IsAssignable():
		return nil, apierrors.Newf(apierrors.Validation, "unknown role %q", in.Role)
	}

	id, err := h.dir.CreateUser(ctx, idp.CreateUserParams{
		Email:        in.Email,
		Password:     in.Password,
		Name:         in.Name,
		EmailConfirm: true,
	})
	if err != nil {
		return nil, err
	}

	if err := h.roles.Set(ctx, id.ID, role); err != nil {
		// The identity exists but carries no role row. There is no rollback;
		// the error propagates and the orphan is logged for manual cleanup.
		h.log.Error("role insert failed after identity creation, identity orphaned",
			zap.String("user_id", id.ID),
			zap.String("email", id.Email),
			zap.Error(err))
		return nil, err
	}

	h.audit.UserCreated(ctx, r, caller.ID, id.ID, string(role))
	return userView{
		ID:     id.ID,
		Name:   in.Name,
		Email:  id.Email,
		Role:   string(role),
		Status: "active",
	}, nil
}

func (h *Handler) listUsers(ctx context.Context) (any, error) {
	identities, err := h.dir.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := h.roles.All(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]userView, 0, len(identities))
	for _, id := range identities {
		status := "pending"
		if id.Confirmed() {
			status = "active"
		}
		out = append(out, userView{
			ID:     id.ID,
			Name:   id.Name,
			Email:  id.Email,
			Role:   string(roles[id.ID].Effective()),
			Status: status,
		})
	}
	return out, nil
}

type deleteUserData struct {
	UserID string `json:"userId"`
}

func (h *Handler) deleteUser(r *http.Request, caller *authn.Caller, data json.RawMessage) (any, error) {
	ctx := r.Context()

	var in deleteUserData
	if err := decodeData(data, &in); err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, apierrors.New(apierrors.Validation, "userId is required")
	}

	if err := h.dir.DeleteUser(ctx, in.UserID); err != nil {
		if errors.Is(err, idp.ErrNotFound) {
			return nil, apierrors.Wrap(apierrors.Validation, "user not found", err)
		}
		return nil, err
	}

	// The provider does not cascade into the local role store; drop the
	// role row here so a reused id never inherits a stale role.
	if err := h.roles.Delete(ctx, in.UserID); err != nil {
		return nil, err
	}

	h.audit.UserDeleted(ctx, r, caller.ID, in.UserID)
	return map[string]any{"success": true}, nil
}

func (h *Handler) getPermissions(ctx context.Context) (any, error) {
	grants, err := h.perms.GrantsByRole(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(grants))
	for role, modules := range grants {
		out[string(role)] = modules
	}
	return out, nil
}

type updatePermissionData struct {
	Role      string `json:"role"`
	ModuleID  string `json:"moduleId"`
	CanAccess bool   `json:"canAccess"`
}

func (h *Handler) updatePermission(r *http.Request, caller *authn.Caller, data json.RawMessage) (any, error) {
	ctx := r.Context()

	var in updatePermissionData
	if err := decodeData(data, &in); err != nil {
		return nil, err
	}

	role := models.Role(normalize.Role(in.Role))
	module := normalize.Module(in.ModuleID)

	if !role.IsAssignable() {
		return nil, apierrors.Newf(apierrors.Validation, "unknown role %q", in.Role)
	}
	if !models.IsKnownModule(module) {
		return nil, apierrors.Newf(apierrors.Validation, "unknown module %q", in.ModuleID)
	}

	id, inserted, err := h.perms.Upsert(ctx, role, module, in.CanAccess)
	if err != nil {
		return nil, err
	}

	h.audit.PermissionUpdated(ctx, r, caller.ID, string(role), module, in.CanAccess)
	out := map[string]any{"success": true, "id": id}
	if inserted {
		out["inserted"] = true
	} else {
		out["updated"] = true
	}
	return out, nil
}

/* -------------------------------------------------------------------------- */
/* Helpers                                                                    */
/* -------------------------------------------------------------------------- */

func decodeData(data json.RawMessage, target any) error {
	if len(data) == 0 {
		return apierrors.New(apierrors.Validation, "missing action data")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return apierrors.Wrap(apierrors.Validation, "invalid action data", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

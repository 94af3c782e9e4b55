package manage_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/comptoirhq/comptoir/internal/app/features/manage"
	"github.com/comptoirhq/comptoir/internal/app/system/idp"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/comptoirhq/comptoir/internal/testutil"
	"go.uber.org/zap"
)

/* -------------------------------------------------------------------------- */
/* In-memory fakes                                                            */
/* -------------------------------------------------------------------------- */

type fakeDirectory struct {
	mu        sync.Mutex
	users     []idp.Identity
	createErr error
	deleted   []string
}

func (f *fakeDirectory) CreateUser(ctx context.Context, p idp.CreateUserParams) (idp.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return idp.Identity{}, f.createErr
	}
	id := idp.Identity{ID: fmt.Sprintf("user-%d", len(f.users)+1), Email: p.Email, Name: p.Name}
	f.users = append(f.users, id)
	return id, nil
}

func (f *fakeDirectory) ListUsers(ctx context.Context) ([]idp.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]idp.Identity(nil), f.users...), nil
}

func (f *fakeDirectory) DeleteUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == userID {
			f.users = append(f.users[:i], f.users[i+1:]...)
			f.deleted = append(f.deleted, userID)
			return nil
		}
	}
	return idp.ErrNotFound
}

type fakeRoles struct {
	mu     sync.Mutex
	rows   map[string]models.Role
	claim  string
	setErr error
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{rows: map[string]models.Role{}}
}

func (f *fakeRoles) Set(ctx context.Context, userID string, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.rows[userID] = role
	return nil
}

func (f *fakeRoles) Delete(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, userID)
	return nil
}

func (f *fakeRoles) HasAdmin(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoles) All(ctx context.Context) (map[string]models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.Role, len(f.rows))
	for k, v := range f.rows {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRoles) ClaimFirstAdmin(ctx context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claim == "" {
		f.claim = userID
	}
	return f.claim == userID, nil
}

type fakeGrant struct {
	id        string
	canAccess bool
}

type fakePerms struct {
	mu   sync.Mutex
	rows map[string]fakeGrant // "role/module"
	next int
}

func newFakePerms() *fakePerms {
	return &fakePerms{rows: map[string]fakeGrant{}}
}

func (f *fakePerms) GrantsByRole(ctx context.Context) (map[models.Role][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[models.Role][]string)
	for _, r := range models.AssignableRoles {
		out[r] = []string{}
	}
	for key, g := range f.rows {
		if !g.canAccess {
			continue
		}
		parts := strings.SplitN(key, "/", 2)
		role := models.Role(parts[0])
		out[role] = append(out[role], parts[1])
	}
	return out, nil
}

func (f *fakePerms) Upsert(ctx context.Context, role models.Role, module string, canAccess bool) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := string(role) + "/" + module
	if g, ok := f.rows[key]; ok {
		g.canAccess = canAccess
		f.rows[key] = g
		return g.id, false, nil
	}
	f.next++
	g := fakeGrant{id: fmt.Sprintf("grant-%d", f.next), canAccess: canAccess}
	f.rows[key] = g
	return g.id, true, nil
}

/* -------------------------------------------------------------------------- */
/* Helpers                                                                    */
/* -------------------------------------------------------------------------- */

type env struct {
	dir   *fakeDirectory
	roles *fakeRoles
	perms *fakePerms
	h     *manage.Handler
}

func newEnv() *env {
	dir := &fakeDirectory{}
	roles := newFakeRoles()
	perms := newFakePerms()
	return &env{
		dir:   dir,
		roles: roles,
		perms: perms,
		h:     manage.NewHandler(dir, roles, perms, nil, zap.NewNop()),
	}
}

func (e *env) do(t *testing.T, caller *testutil.TestCaller, action string, data any) *testutil.ResponseRecorder {
	t.Helper()

	body := map[string]any{"action": action}
	if data != nil {
		body["data"] = data
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := testutil.NewRequest(http.MethodPost, "/manage", strings.NewReader(string(raw)))
	if caller != nil {
		req = testutil.WithCaller(req, *caller)
	}
	rec := testutil.NewRecorder()
	e.h.ServeAction(rec.ResponseRecorder, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *testutil.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

/* -------------------------------------------------------------------------- */
/* Authentication and privilege                                               */
/* -------------------------------------------------------------------------- */

func TestServeAction_NoCaller_Unauthorized(t *testing.T) {
	e := newEnv()
	rec := e.do(t, nil, manage.ActionListUsers, nil)

	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertContains(t, `"error"`)
	rec.AssertContains(t, "Unauthorized")
}

func TestServeAction_NonAdmin_ForbiddenForEveryAction(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()
	if err := e.roles.Set(context.Background(), admin.ID, models.RoleAdmin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	collab := testutil.CollaborateurCaller()
	actions := []string{
		manage.ActionCreateUser,
		manage.ActionListUsers,
		manage.ActionDeleteUser,
		manage.ActionGetPermissions, // read-only is rejected too
		manage.ActionUpdatePermission,
	}
	for _, action := range actions {
		rec := e.do(t, &collab, action, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want %d", action, rec.Code, http.StatusForbidden)
		}
		rec.AssertContains(t, "Unauthorized: Admin privileges required")
	}
}

func TestServeAction_UnknownAction(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()
	rec := e.do(t, &admin, "FROBNICATE", nil)

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Unknown action")
}

/* -------------------------------------------------------------------------- */
/* Bootstrap                                                                  */
/* -------------------------------------------------------------------------- */

func TestBootstrap_FirstCallerBecomesAdmin(t *testing.T) {
	e := newEnv()
	first := testutil.UnassignedCaller()

	rec := e.do(t, &first, manage.ActionGetPermissions, nil)
	rec.AssertStatus(t, http.StatusOK)

	if got := e.roles.rows[first.ID]; got != models.RoleAdmin {
		t.Errorf("first caller role = %q, want admin", got)
	}

	// A different caller arriving later is rejected: bootstrap is spent.
	second := testutil.UnassignedCaller()
	rec = e.do(t, &second, manage.ActionGetPermissions, nil)
	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertContains(t, "Admin privileges required")
}

func TestBootstrap_ConcurrentCallers_SingleWinner(t *testing.T) {
	e := newEnv()

	const n = 16
	results := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := testutil.UnassignedCaller()
			rec := e.do(t, &caller, manage.ActionGetPermissions, nil)
			results[i] = rec.Code
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, code := range results {
		switch code {
		case http.StatusOK:
			wins++
		case http.StatusForbidden:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if wins != 1 {
		t.Errorf("bootstrap winners = %d, want exactly 1", wins)
	}

	admins := 0
	for _, r := range e.roles.rows {
		if r == models.RoleAdmin {
			admins++
		}
	}
	if admins != 1 {
		t.Errorf("admin rows after concurrent bootstrap = %d, want 1", admins)
	}
}

/* -------------------------------------------------------------------------- */
/* CREATE_USER                                                                */
/* -------------------------------------------------------------------------- */

func TestCreateUser_Success(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()

	rec := e.do(t, &admin, manage.ActionCreateUser, map[string]any{
		"email":    "Nina@Example.COM",
		"password": "s3cret-enough",
		"name":     "Nina Dupont",
		"role":     "collaborateur",
	})
	rec.AssertStatus(t, http.StatusOK)

	out := decodeBody[map[string]any](t, rec)
	if out["id"] == "" || out["id"] == nil {
		t.Error("response missing id")
	}
	if out["email"] != "nina@example.com" {
		t.Errorf("email = %v, want normalized lowercase", out["email"])
	}
	if out["role"] != "collaborateur" || out["status"] != "active" {
		t.Errorf("role/status = %v/%v, want collaborateur/active", out["role"], out["status"])
	}

	if got := e.roles.rows[out["id"].(string)]; got != models.RoleCollaborateur {
		t.Errorf("role row = %q, want collaborateur", got)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()

	cases := []struct {
		name string
		data map[string]any
	}{
		{"missing email", map[string]any{"password": "x", "name": "N", "role": "admin"}},
		{"missing password", map[string]any{"email": "a@b.c", "name": "N", "role": "admin"}},
		{"missing name", map[string]any{"email": "a@b.c", "password": "x", "role": "admin"}},
		{"bad role", map[string]any{"email": "a@b.c", "password": "x", "name": "N", "role": "root"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, &admin, manage.ActionCreateUser, tc.data)
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestCreateUser_RoleInsertFailure_LeavesIdentityOrphaned(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()
	e.roles.setErr = errors.New("write concern failed")

	rec := e.do(t, &admin, manage.ActionCreateUser, map[string]any{
		"email":    "orphan@example.com",
		"password": "s3cret-enough",
		"name":     "Orphan",
		"role":     "lecture_seule",
	})

	// The underlying store message propagates and the identity stays behind.
	rec.AssertStatus(t, http.StatusBadGateway)
	rec.AssertContains(t, "write concern failed")
	if len(e.dir.users) != 1 {
		t.Errorf("identities in provider = %d, want 1 (orphan preserved)", len(e.dir.users))
	}
}

/* -------------------------------------------------------------------------- */
/* LIST_USERS                                                                 */
/* -------------------------------------------------------------------------- */

func TestListUsers_DefaultsAndStatus(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()

	confirmed := idp.Identity{ID: "u1", Email: "one@example.com", Name: "One"}
	confirmed.EmailConfirmedAt = ptrNow()
	e.dir.users = []idp.Identity{
		confirmed,
		{ID: "u2", Email: "two@example.com", Name: "Two"}, // unconfirmed, no role row
	}
	if err := e.roles.Set(context.Background(), "u1", models.RoleCollaborateur); err != nil {
		t.Fatalf("seed role: %v", err)
	}

	rec := e.do(t, &admin, manage.ActionListUsers, nil)
	rec.AssertStatus(t, http.StatusOK)

	out := decodeBody[[]map[string]any](t, rec)
	if len(out) != 2 {
		t.Fatalf("users = %d, want 2", len(out))
	}
	if out[0]["role"] != "collaborateur" || out[0]["status"] != "active" {
		t.Errorf("u1 = %v/%v, want collaborateur/active", out[0]["role"], out[0]["status"])
	}
	// Missing role row renders as lecture_seule, unconfirmed as pending.
	if out[1]["role"] != "lecture_seule" || out[1]["status"] != "pending" {
		t.Errorf("u2 = %v/%v, want lecture_seule/pending", out[1]["role"], out[1]["status"])
	}
}

/* -------------------------------------------------------------------------- */
/* DELETE_USER                                                                */
/* -------------------------------------------------------------------------- */

func TestDeleteUser_RemovesIdentityAndRoleRow(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()

	e.dir.users = []idp.Identity{{ID: "victim", Email: "v@example.com"}}
	if err := e.roles.Set(context.Background(), "victim", models.RoleLectureSeule); err != nil {
		t.Fatalf("seed role: %v", err)
	}

	rec := e.do(t, &admin, manage.ActionDeleteUser, map[string]any{"userId": "victim"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"success":true`)

	if len(e.dir.users) != 0 {
		t.Error("identity not deleted from provider")
	}
	if _, ok := e.roles.rows["victim"]; ok {
		t.Error("role row not cleaned up")
	}
}

func TestDeleteUser_MissingID(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()

	rec := e.do(t, &admin, manage.ActionDeleteUser, map[string]any{})
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "userId is required")
}

func TestDeleteUser_UnknownID(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()

	rec := e.do(t, &admin, manage.ActionDeleteUser, map[string]any{"userId": "ghost"})
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "user not found")
}

/* -------------------------------------------------------------------------- */
/* Permissions                                                                */
/* -------------------------------------------------------------------------- */

func TestGetPermissions_OnlyTrueGrants(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()

	mustUpsert(t, e.perms, models.RoleCollaborateur, models.ModuleClients, true)
	mustUpsert(t, e.perms, models.RoleCollaborateur, models.ModuleSales, false) // revoked
	mustUpsert(t, e.perms, models.RoleLectureSeule, models.ModuleDashboard, true)

	rec := e.do(t, &admin, manage.ActionGetPermissions, nil)
	rec.AssertStatus(t, http.StatusOK)

	out := decodeBody[map[string][]string](t, rec)
	if len(out["admin"]) != 0 {
		t.Errorf("admin grants = %v, want empty", out["admin"])
	}
	if len(out["collaborateur"]) != 1 || out["collaborateur"][0] != models.ModuleClients {
		t.Errorf("collaborateur grants = %v, want [clients]", out["collaborateur"])
	}
	if len(out["lecture_seule"]) != 1 || out["lecture_seule"][0] != models.ModuleDashboard {
		t.Errorf("lecture_seule grants = %v, want [dashboard]", out["lecture_seule"])
	}
}

func TestUpdatePermission_InsertThenUpdate(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()

	data := map[string]any{"role": "collaborateur", "moduleId": "clients", "canAccess": true}

	rec := e.do(t, &admin, manage.ActionUpdatePermission, data)
	rec.AssertStatus(t, http.StatusOK)
	first := decodeBody[map[string]any](t, rec)
	if first["inserted"] != true {
		t.Errorf("first call: inserted = %v, want true", first["inserted"])
	}

	rec = e.do(t, &admin, manage.ActionUpdatePermission, data)
	rec.AssertStatus(t, http.StatusOK)
	second := decodeBody[map[string]any](t, rec)
	if second["updated"] != true {
		t.Errorf("second call: updated = %v, want true", second["updated"])
	}
	if first["id"] != second["id"] {
		t.Errorf("id changed across idempotent upsert: %v then %v", first["id"], second["id"])
	}
	if len(e.perms.rows) != 1 {
		t.Errorf("grant rows = %d, want 1", len(e.perms.rows))
	}
}

func TestUpdatePermission_Validation(t *testing.T) {
	e := newEnv()
	admin := testutil.AdminCaller()

	rec := e.do(t, &admin, manage.ActionUpdatePermission,
		map[string]any{"role": "root", "moduleId": "clients", "canAccess": true})
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "unknown role")

	rec = e.do(t, &admin, manage.ActionUpdatePermission,
		map[string]any{"role": "admin", "moduleId": "warehouse", "canAccess": true})
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "unknown module")
}

func mustUpsert(t *testing.T, p *fakePerms, role models.Role, module string, canAccess bool) {
	t.Helper()
	if _, _, err := p.Upsert(context.Background(), role, module, canAccess); err != nil {
		t.Fatalf("seed grant: %v", err)
	}
}

func ptrNow() *time.Time {
	now := time.Now().UTC()
	return &now
}

/* -------------------------------------------------------------------------- */
/* Audit trail                                                                */
/* -------------------------------------------------------------------------- */

func (e *env) doAudit(t *testing.T, caller *testutil.TestCaller) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.NewRequest(http.MethodGet, "/manage/audit", nil)
	if caller != nil {
		req = testutil.WithCaller(req, *caller)
	}
	rec := testutil.NewRecorder()
	e.h.AuditTrail(rec.ResponseRecorder, req)
	return rec
}

func TestAuditTrail_RequiresAdmin(t *testing.T) {
	e := newEnv()

	rec := e.doAudit(t, nil)
	rec.AssertStatus(t, http.StatusUnauthorized)

	collab := testutil.CollaborateurCaller()
	rec = e.doAudit(t, &collab)
	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertContains(t, "Admin privileges required")
}

func TestAuditTrail_DisabledAuditingReturnsEmptyTrail(t *testing.T) {
	e := newEnv()

	admin := testutil.AdminCaller()
	rec := e.doAudit(t, &admin)
	rec.AssertStatus(t, http.StatusOK)

	events := decodeBody[[]map[string]any](t, rec)
	if len(events) != 0 {
		t.Errorf("trail has %d events, want none with auditing disabled", len(events))
	}
}

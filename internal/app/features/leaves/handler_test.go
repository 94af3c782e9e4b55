package leaves_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/comptoirhq/comptoir/internal/app/features/leaves"
	leavestore "github.com/comptoirhq/comptoir/internal/app/store/leaves"
	"github.com/comptoirhq/comptoir/internal/app/system/mailer"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/comptoirhq/comptoir/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// newHandler builds a leaves handler over the test database with a log-only
// mailer, so decision mails never hit the network.
func newHandler(t *testing.T, db *mongo.Database) *leaves.Handler {
	t.Helper()
	mail := mailer.New(mailer.Config{From: "noreply@test.example"}, zap.NewNop())
	return leaves.NewHandler(db, mail, "Comptoir", zap.NewNop())
}

func TestCreate_RequesterIsAlwaysCaller(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)
	caller := testutil.CollaborateurCaller()

	body := strings.NewReader(`{"type":"rtt","start_date":"2026-09-07","end_date":"2026-09-08"}`)
	req := testutil.NewAuthenticatedRequest("POST", "/leaves", body, caller)
	rec := testutil.NewRecorder()
	h.Create(rec, req)

	rec.AssertStatus(t, http.StatusCreated)

	var lr models.LeaveRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &lr); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if lr.RequesterID != caller.ID {
		t.Errorf("requester_id = %q, want caller %q", lr.RequesterID, caller.ID)
	}
	if lr.Status != models.LeaveEnAttente {
		t.Errorf("status = %q, want en_attente", lr.Status)
	}
}

func TestCreate_BadDate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	body := strings.NewReader(`{"type":"rtt","start_date":"07/09/2026","end_date":"2026-09-08"}`)
	req := testutil.NewAuthenticatedRequest("POST", "/leaves", body, testutil.CollaborateurCaller())
	rec := testutil.NewRecorder()
	h.Create(rec, req)

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "invalid start_date")
}

func TestList_AdminSeesAllOthersSeeOwn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := testutil.CollaborateurCaller()
	fx := testutil.NewFixtures(t, db)
	fx.CreateLeaveRequest(ctx, owner.ID)
	fx.CreateLeaveRequest(ctx, "someone-else")

	rec := testutil.NewRecorder()
	h.List(rec, testutil.NewAuthenticatedRequest("GET", "/leaves", nil, testutil.AdminCaller()))
	rec.AssertStatus(t, http.StatusOK)
	var all []models.LeaveRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode admin response: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("admin sees %d requests, want 2", len(all))
	}

	rec = testutil.NewRecorder()
	h.List(rec, testutil.NewAuthenticatedRequest("GET", "/leaves", nil, owner))
	rec.AssertStatus(t, http.StatusOK)
	var mine []models.LeaveRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil {
		t.Fatalf("decode owner response: %v", err)
	}
	if len(mine) != 1 || mine[0].RequesterID != owner.ID {
		t.Errorf("owner sees %v, want only their own request", mine)
	}
}

func TestApprove_AdminOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	lr := fx.CreateLeaveRequest(ctx, "u1")

	req := testutil.NewAuthenticatedRequest("POST", "/leaves/"+lr.ID.Hex()+"/approve", nil, testutil.CollaborateurCaller())
	req = testutil.WithChiURLParam(req, "id", lr.ID.Hex())
	rec := testutil.NewRecorder()
	h.Approve(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)

	admin := testutil.AdminCaller()
	req = testutil.NewAuthenticatedRequest("POST", "/leaves/"+lr.ID.Hex()+"/approve",
		strings.NewReader(`{"comment":"bon voyage"}`), admin)
	req = testutil.WithChiURLParam(req, "id", lr.ID.Hex())
	rec = testutil.NewRecorder()
	h.Approve(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var decided models.LeaveRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &decided); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decided.Status != models.LeaveApprouvee {
		t.Errorf("status = %q, want approuvee", decided.Status)
	}
	if decided.DecidedBy != admin.ID {
		t.Errorf("decided_by = %q, want admin %q", decided.DecidedBy, admin.ID)
	}
}

func TestRefuse_SecondDecisionRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	lr := fx.CreateLeaveRequest(ctx, "u1")
	if _, err := leavestore.New(db).Decide(ctx, lr.ID, true, "admin-1", ""); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	req := testutil.NewAuthenticatedRequest("POST", "/leaves/"+lr.ID.Hex()+"/refuse", nil, testutil.AdminCaller())
	req = testutil.WithChiURLParam(req, "id", lr.ID.Hex())
	rec := testutil.NewRecorder()
	h.Refuse(rec, req)

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "already decided")
}

func TestNotify_PendingRequestRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := testutil.CollaborateurCaller()
	fx := testutil.NewFixtures(t, db)
	lr := fx.CreateLeaveRequest(ctx, owner.ID)

	req := testutil.NewAuthenticatedRequest("POST", "/leaves/"+lr.ID.Hex()+"/notify", nil, owner)
	req = testutil.WithChiURLParam(req, "id", lr.ID.Hex())
	rec := testutil.NewRecorder()
	h.Notify(rec, req)

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "not decided yet")
}

func TestNotify_DecidedRequestSucceeds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := testutil.CollaborateurCaller()
	fx := testutil.NewFixtures(t, db)
	lr := fx.CreateLeaveRequest(ctx, owner.ID)
	if _, err := leavestore.New(db).Decide(ctx, lr.ID, false, "admin-1", ""); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	req := testutil.NewAuthenticatedRequest("POST", "/leaves/"+lr.ID.Hex()+"/notify", nil, owner)
	req = testutil.WithChiURLParam(req, "id", lr.ID.Hex())
	rec := testutil.NewRecorder()
	h.Notify(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "true")
}

func TestDelete_OwnerWithdrawsPendingOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := testutil.CollaborateurCaller()
	fx := testutil.NewFixtures(t, db)

	pending := fx.CreateLeaveRequest(ctx, owner.ID)
	req := testutil.NewAuthenticatedRequest("DELETE", "/leaves/"+pending.ID.Hex(), nil, owner)
	req = testutil.WithChiURLParam(req, "id", pending.ID.Hex())
	rec := testutil.NewRecorder()
	h.Delete(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	decided := fx.CreateLeaveRequest(ctx, owner.ID)
	if _, err := leavestore.New(db).Decide(ctx, decided.ID, true, "admin-1", ""); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	req = testutil.NewAuthenticatedRequest("DELETE", "/leaves/"+decided.ID.Hex(), nil, owner)
	req = testutil.WithChiURLParam(req, "id", decided.ID.Hex())
	rec = testutil.NewRecorder()
	h.Delete(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertContains(t, "only pending requests")
}

func TestDelete_StrangerSeesNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	lr := fx.CreateLeaveRequest(ctx, "owner-1")

	req := testutil.NewAuthenticatedRequest("DELETE", "/leaves/"+lr.ID.Hex(), nil, testutil.CollaborateurCaller())
	req = testutil.WithChiURLParam(req, "id", lr.ID.Hex())
	rec := testutil.NewRecorder()
	h.Delete(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "leave request not found")
}

// A caller who is neither admin nor the requester must not be able to tell
// someone else's request apart from an id that does not exist.
func TestGet_StrangerCannotProbeIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	lr := fx.CreateLeaveRequest(ctx, "owner-1")
	stranger := testutil.CollaborateurCaller()

	get := func(id string) *testutil.ResponseRecorder {
		req := testutil.NewAuthenticatedRequest("GET", "/leaves/"+id, nil, stranger)
		req = testutil.WithChiURLParam(req, "id", id)
		rec := testutil.NewRecorder()
		h.Get(rec, req)
		return rec
	}

	existing := get(lr.ID.Hex())
	missing := get(primitive.NewObjectID().Hex())

	existing.AssertStatus(t, http.StatusBadRequest)
	missing.AssertStatus(t, http.StatusBadRequest)
	if existing.Body.String() != missing.Body.String() {
		t.Errorf("responses differ: existing %q, missing %q",
			existing.Body.String(), missing.Body.String())
	}

	// Notify takes the same path.
	req := testutil.NewAuthenticatedRequest("POST", "/leaves/"+lr.ID.Hex()+"/notify", nil, stranger)
	req = testutil.WithChiURLParam(req, "id", lr.ID.Hex())
	rec := testutil.NewRecorder()
	h.Notify(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "leave request not found")
}

func TestGet_OwnerAndAdminSeeRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := testutil.CollaborateurCaller()
	fx := testutil.NewFixtures(t, db)
	lr := fx.CreateLeaveRequest(ctx, owner.ID)

	for _, caller := range []testutil.TestCaller{owner, testutil.AdminCaller()} {
		req := testutil.NewAuthenticatedRequest("GET", "/leaves/"+lr.ID.Hex(), nil, caller)
		req = testutil.WithChiURLParam(req, "id", lr.ID.Hex())
		rec := testutil.NewRecorder()
		h.Get(rec, req)
		rec.AssertStatus(t, http.StatusOK)
		rec.AssertContains(t, lr.ID.Hex())
	}
}

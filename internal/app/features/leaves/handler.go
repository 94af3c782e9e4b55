// internal/app/features/leaves/handler.go

// Package leaves implements time-off requests: employees create and track
// their own requests, admins decide them, and a decision can be re-sent to
// the requester by email.
package leaves

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	leavestore "github.com/comptoirhq/comptoir/internal/app/store/leaves"
	"github.com/comptoirhq/comptoir/internal/app/system/apierrors"
	"github.com/comptoirhq/comptoir/internal/app/system/authn"
	"github.com/comptoirhq/comptoir/internal/app/system/authz"
	"github.com/comptoirhq/comptoir/internal/app/system/gates"
	"github.com/comptoirhq/comptoir/internal/app/system/mailer"
	"github.com/comptoirhq/comptoir/internal/app/system/paging"
	"github.com/comptoirhq/comptoir/internal/app/system/timeouts"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns all leave-request handlers.
type Handler struct {
	Store    *leavestore.Store
	Mailer   *mailer.Mailer
	SiteName string
	Log      *zap.Logger
}

// NewHandler constructs a leaves Handler.
func NewHandler(db *mongo.Database, mail *mailer.Mailer, siteName string, logger *zap.Logger) *Handler {
	return &Handler{
		Store:    leavestore.New(db),
		Mailer:   mail,
		SiteName: siteName,
		Log:      logger,
	}
}

type createData struct {
	Type      string `json:"type"`
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`
	Comment   string `json:"comment"`
}

// Create handles POST /leaves. The requester is always the caller; client
// payloads cannot create requests on behalf of someone else.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := authn.CurrentCaller(r)
	if !ok {
		apierrors.Write(w, h.Log, apierrors.New(apierrors.Unauthenticated, "Unauthorized"))
		return
	}

	var in createData
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apierrors.Write(w, h.Log, apierrors.Wrap(apierrors.Validation, "invalid request body", err))
		return
	}

	start, err := parseDay(in.StartDate)
	if err != nil {
		apierrors.Write(w, h.Log, apierrors.Wrap(apierrors.Validation, "invalid start_date", err))
		return
	}
	end, err := parseDay(in.EndDate)
	if err != nil {
		apierrors.Write(w, h.Log, apierrors.Wrap(apierrors.Validation, "invalid end_date", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	lr, err := h.Store.Create(ctx, models.LeaveRequest{
		RequesterID:    caller.ID,
		RequesterName:  caller.Name,
		RequesterEmail: caller.Email,
		Type:           in.Type,
		StartDate:      start,
		EndDate:        end,
		Comment:        in.Comment,
	})
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, lr)
}

// List handles GET /leaves. Admins see every request; everyone else sees
// only their own. The optional ?status= query narrows the result.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireAuth(w, r, h.Log)
	if !res.OK {
		return
	}

	requester := res.UserID
	if res.Role == models.RoleAdmin {
		requester = ""
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Store.List(ctx, requester, r.URL.Query().Get("status"), paging.FromRequest(r))
	if err != nil {
		apierrors.Write(w, h.Log, err)
		return
	}
	writeJSON(w, out)
}

// Get handles GET /leaves/{id}. Admin or the requester only.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	lr, ok := h.loadForOwner(ctx, w, r)
	if !ok {
		return
	}
	writeJSON(w, lr)
}

// loadForOwner fetches the addressed request and enforces admin-or-requester
// access. Anyone else gets the same not-found response as an unknown id, so
// request ids cannot be probed for existence.
func (h *Handler) loadForOwner(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.LeaveRequest, bool) {
	if res := gates.RequireAuth(w, r, h.Log); !res.OK {
		return nil, false
	}
	id, ok := pathID(w, r, h.Log)
	if !ok {
		return nil, false
	}
	lr, err := h.Store.GetByID(ctx, id)
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return nil, false
	}
	if !authz.IsAdmin(r) && !authz.IsSelf(r, lr.RequesterID) {
		apierrors.Write(w, h.Log, apierrors.New(apierrors.Validation, "leave request not found"))
		return nil, false
	}
	return lr, true
}

type decideData struct {
	Comment string `json:"comment"`
}

// Approve handles POST /leaves/{id}/approve. Admin only.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// Refuse handles POST /leaves/{id}/refuse. Admin only.
func (h *Handler) Refuse(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	res := gates.RequireAdmin(w, r, h.Log)
	if !res.OK {
		return
	}
	id, ok := pathID(w, r, h.Log)
	if !ok {
		return
	}

	// Body is optional; an empty body means no comment.
	var in decideData
	_ = json.NewDecoder(r.Body).Decode(&in)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	lr, err := h.Store.Decide(ctx, id, approve, res.UserID, in.Comment)
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}

	// Best effort: a mail failure must not undo the decision.
	if err := h.sendDecision(lr); err != nil {
		h.Log.Warn("leave decision mail failed",
			zap.String("leave_id", lr.ID.Hex()),
			zap.Error(err))
	}

	writeJSON(w, lr)
}

// Notify handles POST /leaves/{id}/notify: re-sends the decision email for
// an already-decided request. Admin or the requester only.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	lr, ok := h.loadForOwner(ctx, w, r)
	if !ok {
		return
	}
	if lr.Status == models.LeaveEnAttente {
		apierrors.Write(w, h.Log, apierrors.New(apierrors.Validation, "leave request not decided yet"))
		return
	}

	if err := h.sendDecision(lr); err != nil {
		apierrors.Write(w, h.Log, apierrors.Wrap(apierrors.Upstream, "notification mail failed", err))
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

// Delete handles DELETE /leaves/{id}: a requester may withdraw their own
// pending request; admins may delete any request.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	lr, ok := h.loadForOwner(ctx, w, r)
	if !ok {
		return
	}
	if !authz.IsAdmin(r) && lr.Status != models.LeaveEnAttente {
		apierrors.Write(w, h.Log, apierrors.New(apierrors.Forbidden, "only pending requests can be withdrawn"))
		return
	}

	if err := h.Store.Delete(ctx, lr.ID); err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (h *Handler) sendDecision(lr *models.LeaveRequest) error {
	msg := mailer.BuildLeaveDecisionEmail(mailer.LeaveDecisionData{
		SiteName:      h.SiteName,
		RequesterName: lr.RequesterName,
		LeaveType:     lr.Type,
		StartDate:     lr.StartDate,
		EndDate:       lr.EndDate,
		Approved:      lr.Status == models.LeaveApprouvee,
		Comment:       lr.Comment,
	})
	msg.To = lr.RequesterEmail
	return h.Mailer.Send(msg)
}

func classify(err error) error {
	switch {
	case errors.Is(err, leavestore.ErrNotFound):
		return apierrors.Wrap(apierrors.Validation, "leave request not found", err)
	case errors.Is(err, leavestore.ErrAlreadyDecided):
		return apierrors.Wrap(apierrors.Validation, "leave request already decided", err)
	case errors.Is(err, leavestore.ErrInvalid):
		return apierrors.Wrap(apierrors.Validation, err.Error(), err)
	default:
		return err
	}
}

func parseDay(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func pathID(w http.ResponseWriter, r *http.Request, log *zap.Logger) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, log, apierrors.Wrap(apierrors.Validation, "invalid leave request id", err))
		return primitive.NilObjectID, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// internal/app/features/expenses/handler.go
package expenses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	expensestore "github.com/comptoirhq/comptoir/internal/app/store/expenses"
	"github.com/comptoirhq/comptoir/internal/app/system/apierrors"
	"github.com/comptoirhq/comptoir/internal/app/system/paging"
	"github.com/comptoirhq/comptoir/internal/app/system/timeouts"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns all expense handlers.
type Handler struct {
	Store *expensestore.Store
	Log   *zap.Logger
}

// NewHandler constructs an expenses Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Store: expensestore.New(db), Log: logger}
}

// List handles GET /expenses. The optional ?category= query narrows the
// result.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Store.List(ctx, r.URL.Query().Get("category"), paging.FromRequest(r))
	if err != nil {
		apierrors.Write(w, h.Log, err)
		return
	}
	writeJSON(w, out)
}

// Get handles GET /expenses/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	id, ok := pathID(w, r, h.Log)
	if !ok {
		return
	}
	e, err := h.Store.GetByID(ctx, id)
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	writeJSON(w, e)
}

// Create handles POST /expenses.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var in models.Expense
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apierrors.Write(w, h.Log, apierrors.Wrap(apierrors.Validation, "invalid request body", err))
		return
	}
	e, err := h.Store.Create(ctx, in)
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, e)
}

// Update handles PUT /expenses/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := pathID(w, r, h.Log)
	if !ok {
		return
	}
	var in models.Expense
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apierrors.Write(w, h.Log, apierrors.Wrap(apierrors.Validation, "invalid request body", err))
		return
	}
	if err := h.Store.Update(ctx, id, in); err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	e, err := h.Store.GetByID(ctx, id)
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	writeJSON(w, e)
}

// Delete handles DELETE /expenses/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := pathID(w, r, h.Log)
	if !ok {
		return
	}
	if err := h.Store.Delete(ctx, id); err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func classify(err error) error {
	switch {
	case errors.Is(err, expensestore.ErrNotFound):
		return apierrors.Wrap(apierrors.Validation, "expense not found", err)
	case errors.Is(err, expensestore.ErrInvalid):
		return apierrors.Wrap(apierrors.Validation, err.Error(), err)
	default:
		return err
	}
}

func pathID(w http.ResponseWriter, r *http.Request, log *zap.Logger) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, log, apierrors.Wrap(apierrors.Validation, "invalid expense id", err))
		return primitive.NilObjectID, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

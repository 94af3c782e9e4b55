// internal/app/features/sales/handler.go
package sales

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	salestore "github.com/comptoirhq/comptoir/internal/app/store/sales"
	"github.com/comptoirhq/comptoir/internal/app/system/apierrors"
	"github.com/comptoirhq/comptoir/internal/app/system/paging"
	"github.com/comptoirhq/comptoir/internal/app/system/timeouts"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns all sale handlers.
type Handler struct {
	Store *salestore.Store
	Log   *zap.Logger
}

// NewHandler constructs a sales Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Store: salestore.New(db), Log: logger}
}

// List handles GET /sales. Optional ?client= and ?status= narrow the result.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var clientID *primitive.ObjectID
	if raw := r.URL.Query().Get("client"); raw != "" {
		oid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			apierrors.Write(w, h.Log, apierrors.Wrap(apierrors.Validation, "invalid client id", err))
			return
		}
		clientID = &oid
	}

	out, err := h.Store.List(ctx, clientID, r.URL.Query().Get("status"), paging.FromRequest(r))
	if err != nil {
		apierrors.Write(w, h.Log, err)
		return
	}
	writeJSON(w, out)
}

// Get handles GET /sales/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	id, ok := pathID(w, r, h.Log)
	if !ok {
		return
	}
	sale, err := h.Store.GetByID(ctx, id)
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	writeJSON(w, sale)
}

// Create handles POST /sales.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var in models.Sale
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apierrors.Write(w, h.Log, apierrors.Wrap(apierrors.Validation, "invalid request body", err))
		return
	}
	sale, err := h.Store.Create(ctx, in)
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, sale)
}

// Update handles PUT /sales/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := pathID(w, r, h.Log)
	if !ok {
		return
	}
	var in models.Sale
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apierrors.Write(w, h.Log, apierrors.Wrap(apierrors.Validation, "invalid request body", err))
		return
	}
	if err := h.Store.Update(ctx, id, in); err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	sale, err := h.Store.GetByID(ctx, id)
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	writeJSON(w, sale)
}

// Delete handles DELETE /sales/{id}.
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
	case errors.Is(err, salestore.ErrNotFound):
		return apierrors.Wrap(apierrors.Validation, "sale not found", err)
	case errors.Is(err, salestore.ErrInvalid):
		return apierrors.Wrap(apierrors.Validation, err.Error(), err)
	default:
		return err
	}
}

func pathID(w http.ResponseWriter, r *http.Request, log *zap.Logger) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, log, apierrors.Wrap(apierrors.Validation, "invalid sale id", err))
		return primitive.NilObjectID, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

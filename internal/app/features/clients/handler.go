// internal/app/features/clients/handler.go
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	clientstore "github.com/comptoirhq/comptoir/internal/app/store/clients"
	"github.com/comptoirhq/comptoir/internal/app/system/apierrors"
	"github.com/comptoirhq/comptoir/internal/app/system/paging"
	"github.com/comptoirhq/comptoir/internal/app/system/timeouts"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns all client handlers.
type Handler struct {
	Store *clientstore.Store
	Log   *zap.Logger
}

// NewHandler constructs a clients Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Store: clientstore.New(db), Log: logger}
}

// List handles GET /clients. Optional ?status= and ?q= queries narrow the
// result; ?page= and ?per_page= select the page.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Store.List(ctx,
		r.URL.Query().Get("status"),
		r.URL.Query().Get("q"),
		paging.FromRequest(r))
	if err != nil {
		apierrors.Write(w, h.Log, err)
		return
	}
	writeJSON(w, out)
}

// Get handles GET /clients/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	id, ok := pathID(w, r, h.Log)
	if !ok {
		return
	}
	c, err := h.Store.GetByID(ctx, id)
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	writeJSON(w, c)
}

// Create handles POST /clients.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var in models.Client
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apierrors.Write(w, h.Log, apierrors.Wrap(apierrors.Validation, "invalid request body", err))
		return
	}
	c, err := h.Store.Create(ctx, in)
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, c)
}

// Update handles PUT /clients/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := pathID(w, r, h.Log)
	if !ok {
		return
	}
	var in models.Client
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apierrors.Write(w, h.Log, apierrors.Wrap(apierrors.Validation, "invalid request body", err))
		return
	}
	if err := h.Store.Update(ctx, id, in); err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	c, err := h.Store.GetByID(ctx, id)
	if err != nil {
		apierrors.Write(w, h.Log, classify(err))
		return
	}
	writeJSON(w, c)
}

// Delete handles DELETE /clients/{id}.
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

// classify maps store sentinels onto the API error taxonomy; anything else
// passes through as an upstream failure.
func classify(err error) error {
	switch {
	case errors.Is(err, clientstore.ErrNotFound):
		return apierrors.Wrap(apierrors.Validation, "client not found", err)
	case errors.Is(err, clientstore.ErrInvalid):
		return apierrors.Wrap(apierrors.Validation, err.Error(), err)
	default:
		return err
	}
}

func pathID(w http.ResponseWriter, r *http.Request, log *zap.Logger) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, log, apierrors.Wrap(apierrors.Validation, "invalid client id", err))
		return primitive.NilObjectID, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

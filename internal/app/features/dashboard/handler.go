// internal/app/features/dashboard/handler.go

// Package dashboard aggregates the business stores into a single overview
// payload: counts by status, current-month revenue and spend, recent sales,
// and the pending leave queue.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	clientstore "github.com/comptoirhq/comptoir/internal/app/store/clients"
	expensestore "github.com/comptoirhq/comptoir/internal/app/store/expenses"
	leavestore "github.com/comptoirhq/comptoir/internal/app/store/leaves"
	projectstore "github.com/comptoirhq/comptoir/internal/app/store/projects"
	salestore "github.com/comptoirhq/comptoir/internal/app/store/sales"
	"github.com/comptoirhq/comptoir/internal/app/system/apierrors"
	"github.com/comptoirhq/comptoir/internal/app/system/timeouts"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the dashboard handler.
type Handler struct {
	Clients  *clientstore.Store
	Projects *projectstore.Store
	Sales    *salestore.Store
	Expenses *expensestore.Store
	Leaves   *leavestore.Store
	Log      *zap.Logger
}

// NewHandler constructs a dashboard Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Clients:  clientstore.New(db),
		Projects: projectstore.New(db),
		Sales:    salestore.New(db),
		Expenses: expensestore.New(db),
		Leaves:   leavestore.New(db),
		Log:      logger,
	}
}

// overview is the dashboard payload. Money fields are cents.
type overview struct {
	ClientsByStatus  map[string]int64 `json:"clients_by_status"`
	ProjectsByStatus map[string]int64 `json:"projects_by_status"`

	MonthRevenueCents  int64 `json:"month_revenue_cents"`
	MonthExpensesCents int64 `json:"month_expenses_cents"`

	RecentSales []models.Sale `json:"recent_sales"`

	PendingLeaves int64 `json:"pending_leaves"`
}

// Serve handles GET /dashboard.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var out overview
	var err error

	if out.ClientsByStatus, err = h.Clients.CountByStatus(ctx); err != nil {
		apierrors.Write(w, h.Log, err)
		return
	}
	if out.ProjectsByStatus, err = h.Projects.CountByStatus(ctx); err != nil {
		apierrors.Write(w, h.Log, err)
		return
	}
	if out.MonthRevenueCents, err = h.Sales.TotalBetween(ctx, monthStart, monthEnd); err != nil {
		apierrors.Write(w, h.Log, err)
		return
	}
	if out.MonthExpensesCents, err = h.Expenses.TotalBetween(ctx, monthStart, monthEnd); err != nil {
		apierrors.Write(w, h.Log, err)
		return
	}
	if out.RecentSales, err = h.Sales.Recent(ctx, 5); err != nil {
		apierrors.Write(w, h.Log, err)
		return
	}
	if out.PendingLeaves, err = h.Leaves.CountPending(ctx); err != nil {
		apierrors.Write(w, h.Log, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

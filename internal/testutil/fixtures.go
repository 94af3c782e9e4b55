package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateClient inserts a test client with the given name.
func (f *Fixtures) CreateClient(ctx context.Context, name string) models.Client {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Client{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Email:     "contact@test.example",
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("clients").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("insert test client: %v", err)
	}
	return c
}

// CreateProject inserts a test project for the given client.
func (f *Fixtures) CreateProject(ctx context.Context, clientID primitive.ObjectID, name string) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:          primitive.NewObjectID(),
		ClientID:    clientID,
		Name:        name,
		NameCI:      text.Fold(name),
		Status:      models.ProjectEnCours,
		BudgetCents: 500_000,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("insert test project: %v", err)
	}
	return p
}

// CreateSale inserts a test sale for the given client with the given amount.
func (f *Fixtures) CreateSale(ctx context.Context, clientID primitive.ObjectID, amountCents int64, status string) models.Sale {
	f.t.Helper()

	now := time.Now().UTC()
	s := models.Sale{
		ID:          primitive.NewObjectID(),
		ClientID:    clientID,
		Label:       "Test sale",
		AmountCents: amountCents,
		Date:        now,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("sales").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("insert test sale: %v", err)
	}
	return s
}

// CreateExpense inserts a test expense with the given amount.
func (f *Fixtures) CreateExpense(ctx context.Context, amountCents int64) models.Expense {
	f.t.Helper()

	now := time.Now().UTC()
	e := models.Expense{
		ID:          primitive.NewObjectID(),
		Category:    "autre",
		Label:       "Test expense",
		AmountCents: amountCents,
		Date:        now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("expenses").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("insert test expense: %v", err)
	}
	return e
}

// CreateLeaveRequest inserts a pending leave request for the given requester.
func (f *Fixtures) CreateLeaveRequest(ctx context.Context, requesterID string) models.LeaveRequest {
	f.t.Helper()

	if requesterID == "" {
		requesterID = uuid.NewString()
	}
	now := time.Now().UTC()
	lr := models.LeaveRequest{
		ID:             primitive.NewObjectID(),
		RequesterID:    requesterID,
		RequesterName:  "Test Requester",
		RequesterEmail: "requester@test.example",
		Type:           models.LeaveCongesPayes,
		StartDate:      now.AddDate(0, 0, 7),
		EndDate:        now.AddDate(0, 0, 12),
		Status:         models.LeaveEnAttente,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("leave_requests").InsertOne(ctx, lr); err != nil {
		f.t.Fatalf("insert test leave request: %v", err)
	}
	return lr
}

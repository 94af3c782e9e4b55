// internal/app/store/expenses/expensestore.go
package expensestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comptoirhq/comptoir/internal/app/system/normalize"
	"github.com/comptoirhq/comptoir/internal/app/system/paging"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the expenses collection.
type Store struct {
	c *mongo.Collection
}

// New creates an expense store over the given database.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("expenses")}
}

var (
	// ErrNotFound is returned when no expense matches the given id.
	ErrNotFound = errors.New("expense not found")
	// ErrInvalid is the base of every validation failure this store reports.
	ErrInvalid = errors.New("invalid expense")

	errLabelMissing = fmt.Errorf("%w: label is required", ErrInvalid)
	errBadAmount    = fmt.Errorf("%w: amount must be positive", ErrInvalid)
	errBadCategory  = fmt.Errorf("%w: unknown category", ErrInvalid)
)

func validCategory(c string) bool {
	for _, v := range models.ExpenseCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Create inserts a new expense after validating fields.
func (s *Store) Create(ctx context.Context, e models.Expense) (models.Expense, error) {
	e.ID = primitive.NewObjectID()
	e.Label = normalize.Name(e.Label)
	if e.Category == "" {
		e.Category = "autre"
	}
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}

	if e.Label == "" {
		return models.Expense{}, errLabelMissing
	}
	if e.AmountCents <= 0 {
		return models.Expense{}, errBadAmount
	}
	if !validCategory(e.Category) {
		return models.Expense{}, errBadCategory
	}

	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

// GetByID loads an expense by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Expense, error) {
	var e models.Expense
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns expenses, optionally filtered by category, newest first.
func (s *Store) List(ctx context.Context, category string, pg paging.Params) ([]models.Expense, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}

	cur, err := s.c.Find(ctx, filter,
		pg.Apply(options.Find().SetSort(bson.D{{Key: "date", Value: -1}})))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Expense{}
	for cur.Next(ctx) {
		var e models.Expense
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

// Update rewrites the editable fields of an expense.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, e models.Expense) error {
	label := normalize.Name(e.Label)
	if label == "" {
		return errLabelMissing
	}
	if e.AmountCents <= 0 {
		return errBadAmount
	}
	if !validCategory(e.Category) {
		return errBadCategory
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"category":     e.Category,
		"label":        label,
		"amount_cents": e.AmountCents,
		"date":         e.Date,
		"receipt_note": e.ReceiptNote,
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an expense by id.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// TotalBetween sums expense amounts in [from, to).
func (s *Store) TotalBetween(ctx context.Context, from, to time.Time) (int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"date": bson.M{"$gte": from, "$lt": to}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount_cents"}}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		var row struct {
			Total int64 `bson:"total"`
		}
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
		return row.Total, nil
	}
	return 0, cur.Err()
}

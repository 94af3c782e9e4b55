// internal/app/store/sales/salestore.go
package salestore

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

// Store provides access to the sales collection.
type Store struct {
	c *mongo.Collection
}

// New creates a sale store over the given database.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sales")}
}

var (
	// ErrNotFound is returned when no sale matches the given id.
	ErrNotFound = errors.New("sale not found")
	// ErrInvalid is the base of every validation failure this store reports.
	ErrInvalid = errors.New("invalid sale")

	errLabelMissing  = fmt.Errorf("%w: label is required", ErrInvalid)
	errClientMissing = fmt.Errorf("%w: must reference a client", ErrInvalid)
	errBadAmount     = fmt.Errorf("%w: amount must be positive", ErrInvalid)
	errBadStatus     = fmt.Errorf(`%w: status must be "brouillon"|"facturee"|"payee"`, ErrInvalid)
)

func validStatus(s string) bool {
	return s == models.SaleBrouillon || s == models.SaleFacturee || s == models.SalePayee
}

// Create inserts a new sale after validating fields.
func (s *Store) Create(ctx context.Context, sale models.Sale) (models.Sale, error) {
	sale.ID = primitive.NewObjectID()
	sale.Label = normalize.Name(sale.Label)
	if sale.Status == "" {
		sale.Status = models.SaleBrouillon
	}
	if sale.Date.IsZero() {
		sale.Date = time.Now().UTC()
	}

	if sale.Label == "" {
		return models.Sale{}, errLabelMissing
	}
	if sale.ClientID.IsZero() {
		return models.Sale{}, errClientMissing
	}
	if sale.AmountCents <= 0 {
		return models.Sale{}, errBadAmount
	}
	if !validStatus(sale.Status) {
		return models.Sale{}, errBadStatus
	}

	now := time.Now().UTC()
	sale.CreatedAt = now
	sale.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, sale); err != nil {
		return models.Sale{}, err
	}
	return sale, nil
}

// GetByID loads a sale by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Sale, error) {
	var sale models.Sale
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sale); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// List returns sales, optionally filtered by client and status, newest first.
func (s *Store) List(ctx context.Context, clientID *primitive.ObjectID, status string, pg paging.Params) ([]models.Sale, error) {
	filter := bson.M{}
	if clientID != nil {
		filter["client_id"] = *clientID
	}
	if status != "" {
		filter["status"] = status
	}

	cur, err := s.c.Find(ctx, filter,
		pg.Apply(options.Find().SetSort(bson.D{{Key: "date", Value: -1}})))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Sale{}
	for cur.Next(ctx) {
		var sale models.Sale
		if err := cur.Decode(&sale); err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, cur.Err()
}

// Recent returns the most recent sales, newest first.
func (s *Store) Recent(ctx context.Context, limit int64) ([]models.Sale, error) {
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Sale{}
	for cur.Next(ctx) {
		var sale models.Sale
		if err := cur.Decode(&sale); err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, cur.Err()
}

// Update rewrites the editable fields of a sale.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, sale models.Sale) error {
	label := normalize.Name(sale.Label)
	if label == "" {
		return errLabelMissing
	}
	if sale.AmountCents <= 0 {
		return errBadAmount
	}
	if !validStatus(sale.Status) {
		return errBadStatus
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"label":        label,
		"project_id":   sale.ProjectID,
		"amount_cents": sale.AmountCents,
		"date":         sale.Date,
		"status":       sale.Status,
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

// Delete removes a sale by id.
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

// TotalBetween sums non-draft sale amounts in [from, to).
func (s *Store) TotalBetween(ctx context.Context, from, to time.Time) (int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"date":   bson.M{"$gte": from, "$lt": to},
			"status": bson.M{"$ne": models.SaleBrouillon},
		}}},
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

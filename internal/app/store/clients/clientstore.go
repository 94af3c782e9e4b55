// internal/app/store/clients/clientstore.go
package clientstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comptoirhq/comptoir/internal/app/system/htmlsanitize"
	"github.com/comptoirhq/comptoir/internal/app/system/normalize"
	"github.com/comptoirhq/comptoir/internal/app/system/paging"
	"github.com/comptoirhq/comptoir/internal/app/system/search"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the clients collection.
type Store struct {
	c *mongo.Collection
}

// New creates a client store over the given database.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("clients")}
}

var (
	// ErrNotFound is returned when no client matches the given id.
	ErrNotFound = errors.New("client not found")
	// ErrInvalid is the base of every validation failure this store reports.
	ErrInvalid = errors.New("invalid client")

	errNameMissing = fmt.Errorf("%w: name is required", ErrInvalid)
	errBadStatus   = fmt.Errorf(`%w: status must be "active"|"archived"`, ErrInvalid)
)

// Create inserts a new client after normalizing and validating fields.
// Free-text notes are sanitized before storage.
func (s *Store) Create(ctx context.Context, c models.Client) (models.Client, error) {
	c.ID = primitive.NewObjectID()
	c.Name = normalize.Name(c.Name)
	c.NameCI = text.Fold(c.Name)
	c.Email = normalize.Email(c.Email)
	c.Notes = htmlsanitize.Sanitize(c.Notes)
	if c.Status == "" {
		c.Status = "active"
	}

	if c.Name == "" {
		return models.Client{}, errNameMissing
	}
	if c.Status != "active" && c.Status != "archived" {
		return models.Client{}, errBadStatus
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Client{}, err
	}
	return c, nil
}

// GetByID loads a client by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Client, error) {
	var c models.Client
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns one page of clients sorted by folded name. status narrows by
// status and q matches folded names by substring; either may be empty.
func (s *Store) List(ctx context.Context, status, q string, pg paging.Params) ([]models.Client, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	if nameFilter := search.NameFilter(q); nameFilter != nil {
		for k, v := range nameFilter {
			filter[k] = v
		}
	}

	cur, err := s.c.Find(ctx, filter,
		pg.Apply(options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Client{}
	for cur.Next(ctx) {
		var c models.Client
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, cur.Err()
}

// Update rewrites the editable fields of a client.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, c models.Client) error {
	name := normalize.Name(c.Name)
	if name == "" {
		return errNameMissing
	}
	if c.Status != "active" && c.Status != "archived" {
		return errBadStatus
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"company":    c.Company,
		"email":      normalize.Email(c.Email),
		"phone":      c.Phone,
		"address":    c.Address,
		"notes":      htmlsanitize.Sanitize(c.Notes),
		"status":     c.Status,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a client by id.
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

// CountByStatus returns client counts grouped by status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.Count
	}
	return out, cur.Err()
}

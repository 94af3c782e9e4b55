// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comptoirhq/comptoir/internal/app/system/htmlsanitize"
	"github.com/comptoirhq/comptoir/internal/app/system/normalize"
	"github.com/comptoirhq/comptoir/internal/app/system/paging"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the projects collection.
type Store struct {
	c *mongo.Collection
}

// New creates a project store over the given database.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

var (
	// ErrNotFound is returned when no project matches the given id.
	ErrNotFound = errors.New("project not found")
	// ErrInvalid is the base of every validation failure this store reports.
	ErrInvalid = errors.New("invalid project")

	errNameMissing   = fmt.Errorf("%w: name is required", ErrInvalid)
	errClientMissing = fmt.Errorf("%w: must reference a client", ErrInvalid)
	errBadStatus     = fmt.Errorf(`%w: status must be "en_cours"|"termine"|"suspendu"`, ErrInvalid)
)

func validStatus(s string) bool {
	return s == models.ProjectEnCours || s == models.ProjectTermine || s == models.ProjectSuspendu
}

// Create inserts a new project after normalizing and validating fields.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	p.ID = primitive.NewObjectID()
	p.Name = normalize.Name(p.Name)
	p.NameCI = text.Fold(p.Name)
	p.Description = htmlsanitize.Sanitize(p.Description)
	if p.Status == "" {
		p.Status = models.ProjectEnCours
	}

	if p.Name == "" {
		return models.Project{}, errNameMissing
	}
	if p.ClientID.IsZero() {
		return models.Project{}, errClientMissing
	}
	if !validStatus(p.Status) {
		return models.Project{}, errBadStatus
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// GetByID loads a project by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns projects, optionally filtered by client and status,
// most recently created first.
func (s *Store) List(ctx context.Context, clientID *primitive.ObjectID, status string, pg paging.Params) ([]models.Project, error) {
	filter := bson.M{}
	if clientID != nil {
		filter["client_id"] = *clientID
	}
	if status != "" {
		filter["status"] = status
	}

	cur, err := s.c.Find(ctx, filter,
		pg.Apply(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Project{}
	for cur.Next(ctx) {
		var p models.Project
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, cur.Err()
}

// Update rewrites the editable fields of a project.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p models.Project) error {
	name := normalize.Name(p.Name)
	if name == "" {
		return errNameMissing
	}
	if !validStatus(p.Status) {
		return errBadStatus
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":         name,
		"name_ci":      text.Fold(name),
		"description":  htmlsanitize.Sanitize(p.Description),
		"status":       p.Status,
		"start_date":   p.StartDate,
		"end_date":     p.EndDate,
		"budget_cents": p.BudgetCents,
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

// Delete removes a project by id.
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

// CountByStatus returns project counts grouped by status.
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

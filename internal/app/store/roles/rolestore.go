// internal/app/store/roles/rolestore.go
package rolestore

import (
	"context"
	"time"

	"github.com/comptoirhq/comptoir/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to role assignments and the first-admin bootstrap
// claim. One role row per provider user id (unique index on user_id).
type Store struct {
	c      *mongo.Collection
	claims *mongo.Collection
}

// New creates a role store over the given database.
func New(db *mongo.Database) *Store {
	return &Store{
		c:      db.Collection("role_assignments"),
		claims: db.Collection("bootstrap_claims"),
	}
}

// Get returns the role assigned to userID. A missing row is not an error:
// it returns RoleUnassigned so callers decide how absence is presented.
func (s *Store) Get(ctx context.Context, userID string) (models.Role, error) {
	var row models.RoleAssignment
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return models.RoleUnassigned, nil
	}
	if err != nil {
		return models.RoleUnassigned, err
	}
	return row.Role, nil
}

// Set assigns role to userID, creating or replacing the single row.
func (s *Store) Set(ctx context.Context, userID string, role models.Role) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set":         bson.M{"role": role, "updated_at": now},
			"$setOnInsert": bson.M{"user_id": userID, "created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if wafflemongo.IsDup(err) {
		// Concurrent upsert on the same user id; the row exists now, so
		// retry as a plain update.
		_, err = s.c.UpdateOne(ctx,
			bson.M{"user_id": userID},
			bson.M{"$set": bson.M{"role": role, "updated_at": now}},
		)
	}
	return err
}

// Delete removes the role row for userID. When the deleted row was the last
// admin, the bootstrap claim is released so the next authenticated caller
// can bootstrap again.
func (s *Store) Delete(ctx context.Context, userID string) error {
	var row models.RoleAssignment
	err := s.c.FindOneAndDelete(ctx, bson.M{"user_id": userID}).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return nil
	}
	if err != nil {
		return err
	}

	if row.Role == models.RoleAdmin {
		hasAdmin, err := s.HasAdmin(ctx)
		if err != nil {
			return err
		}
		if !hasAdmin {
			_, err = s.claims.DeleteOne(ctx, bson.M{"_id": claimID})
			return err
		}
	}
	return nil
}

// HasAdmin reports whether any admin role row exists.
func (s *Store) HasAdmin(ctx context.Context) (bool, error) {
	count, err := s.c.CountDocuments(ctx,
		bson.M{"role": models.RoleAdmin},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// All returns every role assignment keyed by provider user id.
func (s *Store) All(ctx context.Context) (map[string]models.Role, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]models.Role)
	for cur.Next(ctx) {
		var row models.RoleAssignment
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.UserID] = row.Role
	}
	return out, cur.Err()
}

// claimID is the singleton key of the first-admin claim document.
const claimID = "first-admin"

// ClaimFirstAdmin atomically claims the first-admin bootstrap for userID.
// The claim is a single conditional write: under concurrent first requests
// exactly one caller observes won=true. The call is idempotent for the
// winner, so a crash between claiming and writing the role row does not
// strand the bootstrap.
func (s *Store) ClaimFirstAdmin(ctx context.Context, userID string) (won bool, err error) {
	var claim struct {
		UserID string `bson:"user_id"`
	}
	err = s.claims.FindOneAndUpdate(ctx,
		bson.M{"_id": claimID},
		bson.M{"$setOnInsert": bson.M{"user_id": userID, "claimed_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&claim)
	if err != nil {
		return false, err
	}
	return claim.UserID == userID, nil
}

// internal/app/store/permissions/permstore.go
package permstore

import (
	"context"
	"time"

	"github.com/comptoirhq/comptoir/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the permission_grants collection.
// Grants are unique per (role, module_id); the unique index backs the
// upsert so concurrent updates for the same pair never duplicate a row.
type Store struct {
	c *mongo.Collection
}

// New creates a permission store over the given database.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("permission_grants")}
}

// CanAccess reports whether role holds a true grant for module.
// No row means no access.
func (s *Store) CanAccess(ctx context.Context, role models.Role, module string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"role":       role,
		"module_id":  module,
		"can_access": true,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GrantsByRole groups accessible module ids by role, considering only rows
// with a true access flag. Every assignable role is present in the result,
// mapped to an empty list when it has no grants.
func (s *Store) GrantsByRole(ctx context.Context) (map[models.Role][]string, error) {
	out := make(map[models.Role][]string, len(models.AssignableRoles))
	for _, r := range models.AssignableRoles {
		out[r] = []string{}
	}

	cur, err := s.c.Find(ctx, bson.M{"can_access": true})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var g models.PermissionGrant
		if err := cur.Decode(&g); err != nil {
			return nil, err
		}
		out[g.Role] = append(out[g.Role], g.ModuleID)
	}
	return out, cur.Err()
}

// Upsert sets the access flag for (role, module), inserting the grant when
// it does not exist. Returns the grant id and whether a new row was
// inserted. Calling it twice with the same arguments leaves exactly one row.
func (s *Store) Upsert(ctx context.Context, role models.Role, module string, canAccess bool) (id string, inserted bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"role": role, "module_id": module},
		bson.M{
			"$set": bson.M{"can_access": canAccess, "updated_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return "", false, err
	}

	if res.UpsertedCount > 0 {
		oid, _ := res.UpsertedID.(primitive.ObjectID)
		return oid.Hex(), true, nil
	}

	// Updated an existing row; fetch its id for the response.
	var g models.PermissionGrant
	if err := s.c.FindOne(ctx, bson.M{"role": role, "module_id": module}).Decode(&g); err != nil {
		return "", false, err
	}
	return g.ID.Hex(), false, nil
}

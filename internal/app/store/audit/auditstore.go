// internal/app/store/audit/auditstore.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event types recorded for administration actions.
const (
	EventAdminBootstrapped = "admin_bootstrapped"
	EventUserCreated       = "user_created"
	EventUserDeleted       = "user_deleted"
	EventPermissionUpdated = "permission_updated"
)

// Event is one recorded administration action.
type Event struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventType  string             `bson:"event_type" json:"event_type"`
	ActorID    string             `bson:"actor_id" json:"actor_id"`
	ActorEmail string             `bson:"actor_email,omitempty" json:"actor_email,omitempty"`
	TargetID   string             `bson:"target_id,omitempty" json:"target_id,omitempty"`
	IP         string             `bson:"ip,omitempty" json:"ip,omitempty"`
	Success    bool               `bson:"success" json:"success"`
	Details    map[string]string  `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// Store persists audit events in the audit_events collection.
type Store struct {
	c *mongo.Collection
}

// New creates an audit store over the given database.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log inserts one event, stamping its creation time.
func (s *Store) Log(ctx context.Context, e Event) error {
	e.ID = primitive.NewObjectID()
	e.CreatedAt = time.Now().UTC()
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// Recent returns the newest events, most recent first.
func (s *Store) Recent(ctx context.Context, limit int64) ([]Event, error) {
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Event{}
	for cur.Next(ctx) {
		var e Event
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

// internal/app/store/leaves/leavestore.go
package leavestore

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

// Store provides access to the leave_requests collection.
type Store struct {
	c *mongo.Collection
}

// New creates a leave store over the given database.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("leave_requests")}
}

var (
	// ErrNotFound is returned when no leave request matches the given id.
	ErrNotFound = errors.New("leave request not found")
	// ErrAlreadyDecided is returned when approving or refusing a request
	// that is no longer pending.
	ErrAlreadyDecided = errors.New("leave request already decided")
	// ErrInvalid is the base of every validation failure this store reports.
	ErrInvalid = errors.New("invalid leave request")

	errBadType      = fmt.Errorf(`%w: type must be "conges_payes"|"rtt"|"maladie"|"sans_solde"`, ErrInvalid)
	errBadDateRange = fmt.Errorf("%w: end date must not be before start date", ErrInvalid)
	errNoRequester  = fmt.Errorf("%w: requester is required", ErrInvalid)
)

// Create inserts a new pending leave request.
func (s *Store) Create(ctx context.Context, lr models.LeaveRequest) (models.LeaveRequest, error) {
	lr.ID = primitive.NewObjectID()
	lr.RequesterName = normalize.Name(lr.RequesterName)
	lr.RequesterEmail = normalize.Email(lr.RequesterEmail)
	lr.Status = models.LeaveEnAttente

	if lr.RequesterID == "" {
		return models.LeaveRequest{}, errNoRequester
	}
	if !models.IsLeaveType(lr.Type) {
		return models.LeaveRequest{}, errBadType
	}
	if lr.EndDate.Before(lr.StartDate) {
		return models.LeaveRequest{}, errBadDateRange
	}

	now := time.Now().UTC()
	lr.CreatedAt = now
	lr.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, lr); err != nil {
		return models.LeaveRequest{}, err
	}
	return lr, nil
}

// GetByID loads a leave request by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.LeaveRequest, error) {
	var lr models.LeaveRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&lr); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lr, nil
}

// List returns leave requests, optionally filtered by requester and status,
// newest first.
func (s *Store) List(ctx context.Context, requesterID, status string, pg paging.Params) ([]models.LeaveRequest, error) {
	filter := bson.M{}
	if requesterID != "" {
		filter["requester_id"] = requesterID
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

	out := []models.LeaveRequest{}
	for cur.Next(ctx) {
		var lr models.LeaveRequest
		if err := cur.Decode(&lr); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, cur.Err()
}

// Decide transitions a pending request to approved or refused.
// The filter requires the pending status, so a request can only be decided
// once even under concurrent decisions.
func (s *Store) Decide(ctx context.Context, id primitive.ObjectID, approve bool, decidedBy, comment string) (*models.LeaveRequest, error) {
	status := models.LeaveApprouvee
	if !approve {
		status = models.LeaveRefusee
	}

	now := time.Now().UTC()
	set := bson.M{
		"status":     status,
		"decided_by": decidedBy,
		"decided_at": now,
		"updated_at": now,
	}
	if comment != "" {
		set["comment"] = comment
	}

	var lr models.LeaveRequest
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.LeaveEnAttente},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&lr)
	if err == mongo.ErrNoDocuments {
		// Either the id is unknown or the request was already decided.
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrAlreadyDecided
	}
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

// CountPending returns the number of requests awaiting a decision.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": models.LeaveEnAttente})
}

// Delete removes a leave request by id.
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

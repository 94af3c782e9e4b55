// internal/domain/models/leave.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Leave request types.
const (
	LeaveCongesPayes = "conges_payes"
	LeaveRTT         = "rtt"
	LeaveMaladie     = "maladie"
	LeaveSansSolde   = "sans_solde"
)

// Leave request statuses.
const (
	LeaveEnAttente = "en_attente"
	LeaveApprouvee = "approuvee"
	LeaveRefusee   = "refusee"
)

// LeaveTypes lists the accepted leave request types.
var LeaveTypes = []string{LeaveCongesPayes, LeaveRTT, LeaveMaladie, LeaveSansSolde}

// IsLeaveType reports whether t is an accepted leave type.
func IsLeaveType(t string) bool {
	for _, v := range LeaveTypes {
		if v == t {
			return true
		}
	}
	return false
}

// LeaveRequest is a time-off request made by a user.
// RequesterID is the identity-provider user id, not an app-local ref:
// requesters may have no role row yet and still own their requests.
type LeaveRequest struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequesterID    string             `bson:"requester_id" json:"requester_id"`
	RequesterName  string             `bson:"requester_name" json:"requester_name"`
	RequesterEmail string             `bson:"requester_email" json:"requester_email"`

	Type      string    `bson:"type" json:"type"`
	StartDate time.Time `bson:"start_date" json:"start_date"`
	EndDate   time.Time `bson:"end_date" json:"end_date"`
	Status    string    `bson:"status" json:"status"` // en_attente | approuvee | refusee
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`

	// DecidedBy records the admin who approved or refused the request.
	DecidedBy string     `bson:"decided_by,omitempty" json:"decided_by,omitempty"`
	DecidedAt *time.Time `bson:"decided_at,omitempty" json:"decided_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

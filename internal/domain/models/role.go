// internal/domain/models/role.go
package models

import "time"

// Role is the closed set of access levels a user can hold.
//
// RoleUnassigned means "no role row exists for this user". It is a distinct
// state so callers never silently conflate "no role yet" with an intentional
// read-only assignment; mapping Unassigned to read-only happens only at
// presentation boundaries (user listings, module gating) via Effective().
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleCollaborateur Role = "collaborateur"
	RoleLectureSeule  Role = "lecture_seule"
	RoleUnassigned    Role = ""
)

// AssignableRoles are the roles an admin can grant through user management.
var AssignableRoles = []Role{RoleAdmin, RoleCollaborateur, RoleLectureSeule}

// IsAssignable reports whether r is one of the roles an admin may grant.
func (r Role) IsAssignable() bool {
	switch r {
	case RoleAdmin, RoleCollaborateur, RoleLectureSeule:
		return true
	}
	return false
}

// Effective resolves the role used at presentation boundaries: an unassigned
// user is treated as the lowest privilege (read-only), never as admin.
func (r Role) Effective() Role {
	if r == RoleUnassigned {
		return RoleLectureSeule
	}
	return r
}

// CanWrite reports whether the role may perform mutating operations on
// business modules. Read-only and unassigned users cannot.
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleCollaborateur
}

// RoleAssignment maps one identity-provider user id to exactly one role.
// At most one document exists per user_id (unique index).
type RoleAssignment struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Role      Role      `bson:"role" json:"role"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

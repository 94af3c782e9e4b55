// internal/domain/models/permission.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Module identifiers controlled by permission grants. These match the
// front-end module ids, so grants written here drive feature visibility.
const (
	ModuleClients   = "clients"
	ModuleProjects  = "projects"
	ModuleSales     = "sales"
	ModuleExpenses  = "expenses"
	ModuleLeaves    = "leaves"
	ModuleDashboard = "dashboard"
)

// KnownModules lists every module id a permission grant can target.
var KnownModules = []string{
	ModuleClients,
	ModuleProjects,
	ModuleSales,
	ModuleExpenses,
	ModuleLeaves,
	ModuleDashboard,
}

// IsKnownModule reports whether id is a recognized module identifier.
func IsKnownModule(id string) bool {
	for _, m := range KnownModules {
		if m == id {
			return true
		}
	}
	return false
}

// PermissionGrant controls whether a role can access one module.
// Unique per (role, module_id); updated via upsert, never duplicated.
type PermissionGrant struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Role      Role               `bson:"role" json:"role"`
	ModuleID  string             `bson:"module_id" json:"module_id"`
	CanAccess bool               `bson:"can_access" json:"can_access"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

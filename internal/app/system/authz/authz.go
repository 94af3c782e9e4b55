// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/comptoirhq/comptoir/internal/app/system/authn"
	"github.com/comptoirhq/comptoir/internal/domain/models"
)

// CallerCtx returns the caller's role, name, provider user id, and a found
// flag. ok=true means an authenticated caller is present; the role may still
// be RoleUnassigned.
func CallerCtx(r *http.Request) (role models.Role, name string, userID string, ok bool) {
	c, ok := authn.CurrentCaller(r)
	if !ok {
		return models.RoleUnassigned, "", "", false
	}
	return c.Role, c.Name, c.ID, true
}

// IsAdmin reports whether the current request's caller is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := CallerCtx(r)
	return ok && role == models.RoleAdmin
}

// IsSelf reports whether the caller is the given provider user id.
func IsSelf(r *http.Request, userID string) bool {
	_, _, id, ok := CallerCtx(r)
	return ok && id == userID
}

// Package authn resolves bearer credentials into a request-scoped Caller.
//
// Identities live in the external provider; roles live in the local role
// store. The middleware re-resolves both on every request so role changes
// and deleted accounts take effect immediately — no state is retained
// between invocations.
package authn

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/comptoirhq/comptoir/internal/app/system/apierrors"
	"github.com/comptoirhq/comptoir/internal/app/system/idp"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"go.uber.org/zap"
)

// Caller is the authenticated principal injected into the request context.
type Caller struct {
	ID        string
	Email     string
	Name      string
	Role      models.Role // RoleUnassigned when no role row exists
	Confirmed bool
}

type ctxKey struct{}

// CurrentCaller returns the caller and a found flag.
func CurrentCaller(r *http.Request) (*Caller, bool) {
	c, ok := r.Context().Value(ctxKey{}).(*Caller)
	return c, ok
}

// WithTestCaller injects a caller directly, bypassing token resolution.
// For handler tests only.
func WithTestCaller(r *http.Request, c *Caller) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, c))
}

// IdentityResolver exchanges a bearer token for an identity.
type IdentityResolver interface {
	UserFromToken(ctx context.Context, token string) (idp.Identity, error)
}

// RoleSource looks up the role assigned to a user id.
// Implementations return RoleUnassigned (not an error) when no row exists.
type RoleSource interface {
	Get(ctx context.Context, userID string) (models.Role, error)
}

// AccessSource answers whether a role holds a true grant for a module.
type AccessSource interface {
	CanAccess(ctx context.Context, role models.Role, module string) (bool, error)
}

// Middleware builds the authentication middleware chain.
type Middleware struct {
	resolver IdentityResolver
	roles    RoleSource
	log      *zap.Logger
}

// NewMiddleware constructs the middleware with its collaborators.
func NewMiddleware(resolver IdentityResolver, roles RoleSource, logger *zap.Logger) *Middleware {
	return &Middleware{resolver: resolver, roles: roles, log: logger}
}

// BearerToken extracts the bearer token from a request, if present.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) || len(h) == len(prefix) {
		return "", false
	}
	return h[len(prefix):], true
}

// LoadCaller resolves the bearer token (when one is sent) and injects the
// Caller into context. Requests without an Authorization header pass through
// unauthenticated; a token the provider rejects fails the request.
func (m *Middleware) LoadCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		id, err := m.resolver.UserFromToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, idp.ErrUnauthorized) {
				apierrors.Write(w, m.log, apierrors.Wrap(apierrors.Unauthenticated, "Unauthorized", err))
				return
			}
			apierrors.Write(w, m.log, apierrors.Wrap(apierrors.Upstream, "identity provider unavailable", err))
			return
		}

		role, err := m.roles.Get(r.Context(), id.ID)
		if err != nil {
			apierrors.Write(w, m.log, apierrors.Wrap(apierrors.Upstream, "role lookup failed", err))
			return
		}

		caller := &Caller{
			ID:        id.ID,
			Email:     id.Email,
			Name:      id.Name,
			Role:      role,
			Confirmed: id.Confirmed(),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, caller)))
	})
}

// RequireAuthenticated rejects requests that carry no caller.
func (m *Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentCaller(r); !ok {
			apierrors.Write(w, m.log, apierrors.New(apierrors.Unauthenticated, "Unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireModule gates a business module behind permission grants:
//   - admins always pass;
//   - other roles (unassigned resolves to lecture_seule) need a true
//     (role, module) grant;
//   - mutating methods additionally require a writing role.
func (m *Middleware) RequireModule(access AccessSource, module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CurrentCaller(r)
			if !ok {
				apierrors.Write(w, m.log, apierrors.New(apierrors.Unauthenticated, "Unauthorized"))
				return
			}

			if caller.Role != models.RoleAdmin {
				allowed, err := access.CanAccess(r.Context(), caller.Role.Effective(), module)
				if err != nil {
					apierrors.Write(w, m.log, apierrors.Wrap(apierrors.Upstream, "permission lookup failed", err))
					return
				}
				if !allowed {
					apierrors.Write(w, m.log, apierrors.Newf(apierrors.Forbidden,
						"access to module %q denied", module))
					return
				}
				if r.Method != http.MethodGet && r.Method != http.MethodHead && !caller.Role.CanWrite() {
					apierrors.Write(w, m.log, apierrors.New(apierrors.Forbidden,
						"read-only access"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

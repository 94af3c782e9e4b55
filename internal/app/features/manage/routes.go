// internal/app/features/manage/routes.go
package manage

import "github.com/go-chi/chi/v5"

// MountRoutes registers POST /manage on the supplied router. The CORS
// preflight for the endpoint is answered by the router-level middleware;
// authentication context comes from the caller-loading middleware.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/manage", h.ServeAction)
	r.Get("/manage/audit", h.AuditTrail)
}

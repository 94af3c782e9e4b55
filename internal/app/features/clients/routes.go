// internal/app/features/clients/routes.go
package clients

import "github.com/go-chi/chi/v5"

// MountRoutes mounts all client routes on the given router. Module access
// is enforced by the permission middleware the caller wraps around the
// group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

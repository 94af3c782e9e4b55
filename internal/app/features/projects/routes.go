// internal/app/features/projects/routes.go
package projects

import "github.com/go-chi/chi/v5"

// MountRoutes mounts all project routes on the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

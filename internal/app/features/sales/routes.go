// internal/app/features/sales/routes.go
package sales

import "github.com/go-chi/chi/v5"

// MountRoutes mounts all sale routes on the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

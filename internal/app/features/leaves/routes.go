// internal/app/features/leaves/routes.go
package leaves

import "github.com/go-chi/chi/v5"

// MountRoutes mounts all leave-request routes on the given router.
// Decision routes gate on admin inside the handler; ownership checks for
// get/notify/delete also happen in the handler because they need the
// loaded request.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/refuse", h.Refuse)
	r.Post("/{id}/notify", h.Notify)
	r.Delete("/{id}", h.Delete)
}

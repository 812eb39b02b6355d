// internal/app/features/sessions/routes.go
package sessions

import "github.com/go-chi/chi/v5"

// Routes returns the /sessions subrouter. The fixed paths are registered
// before the {id} routes so "upcoming" and "completed" are never parsed as
// IDs.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/upcoming", h.HandleUpcoming)
	r.Get("/completed", h.HandleCompleted)
	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	r.Get("/{id}/attendance", h.HandleAttendanceGet)
	r.Post("/{id}/attendance", h.HandleAttendancePost)
	return r
}

// internal/app/features/programs/routes.go
package programs

import "github.com/go-chi/chi/v5"

// Routes returns the /programs subrouter. "/active" is registered before
// "/{id}" so it is never parsed as an ID.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/active", h.HandleActive)
	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	r.Get("/{id}/progress", h.HandleProgress)
	r.Patch("/{programID}/activities/{activityID}", h.HandleActivityPatch)
	return r
}

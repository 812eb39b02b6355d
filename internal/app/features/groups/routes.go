// internal/app/features/groups/routes.go
package groups

import "github.com/go-chi/chi/v5"

// Routes returns the /groups subrouter. Auth middleware is applied by the
// caller in bootstrap.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)

	r.Get("/{id}/students", h.HandleStudents)
	r.Post("/{id}/students", h.HandleAddStudent)
	r.Delete("/{id}/students/{studentID}", h.HandleRemoveStudent)
	r.Get("/{id}/sessions", h.HandleSessions)
	return r
}

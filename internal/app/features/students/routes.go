// internal/app/features/students/routes.go
package students

import "github.com/go-chi/chi/v5"

// Routes returns the /students subrouter. Auth middleware is applied by the
// caller in bootstrap.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}

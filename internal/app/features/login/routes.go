// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes returns the /auth subrouter. These endpoints are mounted outside
// the signed-in gate; HandleMe checks the session itself.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)
	r.Get("/me", h.HandleMe)
	return r
}

// internal/app/features/login/handler.go
package login

import (
	"errors"
	"net/http"

	staffstore "github.com/dalemusser/buildbee/internal/app/store/staff"
	"github.com/dalemusser/buildbee/internal/app/system/apperr"
	"github.com/dalemusser/buildbee/internal/app/system/auth"
	"github.com/dalemusser/buildbee/internal/app/system/httpjson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the /auth endpoints for staff session cookies.
type Handler struct {
	Staff *staffstore.Store
	Log   *zap.Logger
}

func NewHandler(staff *staffstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Staff: staff, Log: logger}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin verifies the credentials and sets the session cookie. Unknown
// email and wrong password give the same answer so the endpoint cannot be
// used to probe which staff accounts exist.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	staff, err := h.Staff.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httpjson.Error(w, h.Log, apperr.New(apperr.Validation, "invalid email or password"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if !h.Staff.CheckPassword(staff, req.Password) {
		httpjson.Error(w, h.Log, apperr.New(apperr.Validation, "invalid email or password"))
		return
	}

	sessionStaff := auth.SessionStaff{
		ID:    staff.ID.Hex(),
		Name:  staff.Name,
		Email: staff.Email,
		Role:  staff.Role,
	}
	if err := auth.SignIn(w, r, sessionStaff); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	h.Log.Info("staff signed in", zap.String("staff_id", sessionStaff.ID))
	httpjson.Write(w, http.StatusOK, sessionStaff)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := auth.SignOut(w, r); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// HandleMe reports the signed-in staff member, or 401.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	staff, ok := auth.CurrentStaff(r)
	if !ok {
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"message": "authentication required"})
		return
	}
	httpjson.Write(w, http.StatusOK, staff)
}

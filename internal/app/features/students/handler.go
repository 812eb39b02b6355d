// internal/app/features/students/handler.go
package students

import (
	"errors"
	"net/http"
	"strings"

	studentstore "github.com/dalemusser/buildbee/internal/app/store/students"
	"github.com/dalemusser/buildbee/internal/app/system/apperr"
	"github.com/dalemusser/buildbee/internal/app/system/httpjson"
	"github.com/dalemusser/buildbee/internal/app/system/relation"
	"github.com/dalemusser/buildbee/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the /students resource. Deletes go through the relation
// maintainer so group rosters and attendance lists stay consistent.
type Handler struct {
	Students  *studentstore.Store
	Relations *relation.Maintainer
	Log       *zap.Logger
}

func NewHandler(students *studentstore.Store, relations *relation.Maintainer, logger *zap.Logger) *Handler {
	return &Handler{Students: students, Relations: relations, Log: logger}
}

type createRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Level     string `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Avatar    string `json:"avatar" validate:"omitempty,url"`
}

type updateRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone"`
	BirthDate *string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Level     *string `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Avatar    *string `json:"avatar" validate:"omitempty,url"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Students.List(r.Context())
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	level := req.Level
	if level == "" {
		level = models.LevelBeginner
	}
	created, err := h.Students.Create(r.Context(), models.Student{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
		Phone:     strings.TrimSpace(req.Phone),
		BirthDate: req.BirthDate,
		Level:     level,
		Avatar:    req.Avatar,
	})
	if errors.Is(err, studentstore.ErrDuplicateEmail) {
		httpjson.Error(w, h.Log, apperr.Wrap(apperr.Conflict, err.Error(), err))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	h.Log.Info("student created", zap.String("student_id", created.ID.Hex()))
	httpjson.Write(w, http.StatusCreated, created)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	st, err := h.Students.GetByID(r.Context(), id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "student not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, st)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	var req updateRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	set := bson.M{}
	if req.FirstName != nil {
		set["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		set["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		set["email"] = email
		set["email_ci"] = text.Fold(email)
	}
	if req.Phone != nil {
		set["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.BirthDate != nil {
		set["birth_date"] = *req.BirthDate
	}
	if req.Level != nil {
		set["level"] = *req.Level
	}
	if req.Avatar != nil {
		set["avatar"] = *req.Avatar
	}
	if len(set) == 0 {
		httpjson.Error(w, h.Log, apperr.New(apperr.Validation, "no updatable fields in request body"))
		return
	}

	st, err := h.Students.Update(r.Context(), id, set)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "student not found"))
		return
	case errors.Is(err, studentstore.ErrDuplicateEmail):
		httpjson.Error(w, h.Log, apperr.Wrap(apperr.Conflict, err.Error(), err))
		return
	case err != nil:
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, st)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	err = h.Relations.DeleteStudent(r.Context(), id)
	if errors.Is(err, relation.ErrStudentNotFound) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "student not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "student deleted"})
}

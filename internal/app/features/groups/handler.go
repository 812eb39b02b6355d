// internal/app/features/groups/handler.go
package groups

import (
	"errors"
	"net/http"
	"strings"

	groupstore "github.com/dalemusser/buildbee/internal/app/store/groups"
	"github.com/dalemusser/buildbee/internal/app/store/queries/groupqueries"
	"github.com/dalemusser/buildbee/internal/app/system/apperr"
	"github.com/dalemusser/buildbee/internal/app/system/htmlsanitize"
	"github.com/dalemusser/buildbee/internal/app/system/httpjson"
	"github.com/dalemusser/buildbee/internal/app/system/relation"
	"github.com/dalemusser/buildbee/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the /groups resource: CRUD plus the membership endpoints.
// Membership changes and deletes go through the relation maintainer; the
// store only touches the group's own info fields.
type Handler struct {
	DB        *mongo.Database
	Groups    *groupstore.Store
	Relations *relation.Maintainer
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, groups *groupstore.Store, relations *relation.Maintainer, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Groups: groups, Relations: relations, Log: logger}
}

type createRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type updateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description"`
}

type memberRequest struct {
	StudentID string `json:"studentId" validate:"required"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Groups.List(r.Context())
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

	created, err := h.Groups.Create(r.Context(), models.Group{
		Name:        strings.TrimSpace(req.Name),
		Description: htmlsanitize.Clean(req.Description),
	})
	if errors.Is(err, groupstore.ErrDuplicateGroupName) {
		httpjson.Error(w, h.Log, apperr.Wrap(apperr.Conflict, err.Error(), err))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	h.Log.Info("group created", zap.String("group_id", created.ID.Hex()))
	httpjson.Write(w, http.StatusCreated, created)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	g, err := h.Groups.GetByID(r.Context(), id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "group not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, g)
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
	if req.Name != nil {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		set["description"] = htmlsanitize.Clean(*req.Description)
	}
	if len(set) == 0 {
		httpjson.Error(w, h.Log, apperr.New(apperr.Validation, "no updatable fields in request body"))
		return
	}

	g, err := h.Groups.UpdateInfo(r.Context(), id, set)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "group not found"))
		return
	case errors.Is(err, groupstore.ErrDuplicateGroupName):
		httpjson.Error(w, h.Log, apperr.Wrap(apperr.Conflict, err.Error(), err))
		return
	case err != nil:
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, g)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	err = h.Relations.DeleteGroup(r.Context(), id)
	if errors.Is(err, relation.ErrGroupNotFound) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "group not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "group deleted"})
}

// HandleStudents returns the roster as full student documents.
func (h *Handler) HandleStudents(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	list, err := groupqueries.Students(r.Context(), h.DB, id)
	if errors.Is(err, groupqueries.ErrGroupNotFound) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "group not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

// HandleSessions returns the group's sessions as full documents.
func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	list, err := groupqueries.Sessions(r.Context(), h.DB, id)
	if errors.Is(err, groupqueries.ErrGroupNotFound) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "group not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

// HandleAddStudent links a student to the group (both directions).
func (h *Handler) HandleAddStudent(w http.ResponseWriter, r *http.Request) {
	groupID, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	var req memberRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	studentID, err := httpjson.ParseID(req.StudentID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	if err := h.Relations.LinkStudent(r.Context(), groupID, studentID); err != nil {
		httpjson.Error(w, h.Log, relationErr(err))
		return
	}
	g, err := h.Groups.GetByID(r.Context(), groupID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, g)
}

// HandleRemoveStudent unlinks a student from the group (both directions).
func (h *Handler) HandleRemoveStudent(w http.ResponseWriter, r *http.Request) {
	groupID, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	studentID, err := httpjson.IDParam(r, "studentID")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	if err := h.Relations.UnlinkStudent(r.Context(), groupID, studentID); err != nil {
		httpjson.Error(w, h.Log, relationErr(err))
		return
	}
	g, err := h.Groups.GetByID(r.Context(), groupID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, g)
}

func relationErr(err error) error {
	switch {
	case errors.Is(err, relation.ErrGroupNotFound):
		return apperr.New(apperr.NotFound, "group not found")
	case errors.Is(err, relation.ErrStudentNotFound):
		return apperr.New(apperr.NotFound, "student not found")
	default:
		return err
	}
}

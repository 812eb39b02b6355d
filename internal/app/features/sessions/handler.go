// internal/app/features/sessions/handler.go
package sessions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/buildbee/internal/app/store/queries/sessionqueries"
	sessionstore "github.com/dalemusser/buildbee/internal/app/store/sessions"
	"github.com/dalemusser/buildbee/internal/app/system/apperr"
	"github.com/dalemusser/buildbee/internal/app/system/htmlsanitize"
	"github.com/dalemusser/buildbee/internal/app/system/httpjson"
	"github.com/dalemusser/buildbee/internal/app/system/relation"
	"github.com/dalemusser/buildbee/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the /sessions resource. Creation, deletion, and attendance go
// through the relation maintainer so the owning group's session list stays
// consistent; the store handles plain field updates.
type Handler struct {
	DB        *mongo.Database
	Sessions  *sessionstore.Store
	Relations *relation.Maintainer
	Log       *zap.Logger

	// Now is the clock used for the upcoming cutoff; tests override it.
	Now func() time.Time
}

func NewHandler(db *mongo.Database, sessions *sessionstore.Store, relations *relation.Maintainer, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Sessions: sessions, Relations: relations, Log: logger, Now: time.Now}
}

type createRequest struct {
	Name        string `json:"name" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Duration    *int   `json:"duration" validate:"required,min=0"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=upcoming completed"`
	GroupID     string `json:"groupId" validate:"required"`
}

// updateRequest covers the general field-merge path. groupId and attendance
// are deliberately absent: the owning group is immutable and attendance has
// its own endpoint plus the attendance-only body shortcut.
type updateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Duration    *int    `json:"duration" validate:"omitempty,min=0"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,oneof=upcoming completed"`
}

type attendanceRequest struct {
	Attendance []string `json:"attendance" validate:"required"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Sessions.List(r.Context())
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

func (h *Handler) HandleUpcoming(w http.ResponseWriter, r *http.Request) {
	list, err := sessionqueries.Upcoming(r.Context(), h.DB, h.Now())
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

func (h *Handler) HandleCompleted(w http.ResponseWriter, r *http.Request) {
	list, err := sessionqueries.Completed(r.Context(), h.DB)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	detail, err := sessionqueries.GetDetail(r.Context(), h.DB, id)
	if errors.Is(err, sessionqueries.ErrSessionNotFound) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "session not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, detail)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	groupID, err := httpjson.ParseID(req.GroupID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	status := req.Status
	if status == "" {
		status = models.SessionUpcoming
	}
	created, err := h.Relations.CreateSession(r.Context(), models.Session{
		Name:        strings.TrimSpace(req.Name),
		Date:        req.Date,
		Duration:    *req.Duration,
		Location:    htmlsanitize.Clean(req.Location),
		Description: htmlsanitize.Clean(req.Description),
		Status:      status,
		GroupID:     groupID,
	})
	if errors.Is(err, relation.ErrGroupNotFound) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "group not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	h.Log.Info("session created",
		zap.String("session_id", created.ID.Hex()),
		zap.String("group_id", created.GroupID.Hex()))
	httpjson.Write(w, http.StatusCreated, created)
}

// HandleUpdate implements the PUT contract: a body that is exactly
// {"attendance": [...]} is an attendance mark and touches nothing else; any
// other body is a field-merge update of the session's own fields.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		httpjson.Error(w, h.Log, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return
	}
	if len(raw) == 0 {
		httpjson.Error(w, h.Log, apperr.New(apperr.Validation, "request body is required"))
		return
	}

	if att, ok := raw["attendance"]; ok && len(raw) == 1 {
		var ids []string
		if err := json.Unmarshal(att, &ids); err != nil {
			httpjson.Error(w, h.Log, apperr.Wrap(apperr.Validation, "attendance must be an array of student ids", err))
			return
		}
		sess, err := h.markAttendance(r, id, ids)
		if err != nil {
			httpjson.Error(w, h.Log, err)
			return
		}
		httpjson.Write(w, http.StatusOK, sess)
		return
	}

	var req updateRequest
	if err := unmarshalStrict(raw, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	set := bson.M{}
	if req.Name != nil {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Date != nil {
		set["date"] = *req.Date
	}
	if req.Duration != nil {
		set["duration_minutes"] = *req.Duration
	}
	if req.Location != nil {
		set["location"] = htmlsanitize.Clean(*req.Location)
	}
	if req.Description != nil {
		set["description"] = htmlsanitize.Clean(*req.Description)
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}
	if len(set) == 0 {
		httpjson.Error(w, h.Log, apperr.New(apperr.Validation, "no updatable fields in request body"))
		return
	}

	sess, err := h.Sessions.Update(r.Context(), id, set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "session not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, sess)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	err = h.Relations.DeleteSession(r.Context(), id)
	if errors.Is(err, relation.ErrSessionNotFound) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "session not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "session deleted"})
}

// HandleAttendanceGet returns the attendance list resolved to trimmed
// student objects.
func (h *Handler) HandleAttendanceGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	refs, err := sessionqueries.AttendanceRefs(r.Context(), h.DB, id)
	if errors.Is(err, sessionqueries.ErrSessionNotFound) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "session not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, refs)
}

// HandleAttendancePost replaces the attendance list and returns the full
// detail projection.
func (h *Handler) HandleAttendancePost(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	var req attendanceRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if _, err := h.markAttendance(r, id, req.Attendance); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	detail, err := sessionqueries.GetDetail(r.Context(), h.DB, id)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, detail)
}

func (h *Handler) markAttendance(r *http.Request, sessionID primitive.ObjectID, rawIDs []string) (models.Session, error) {
	ids := make([]primitive.ObjectID, 0, len(rawIDs))
	for _, rawID := range rawIDs {
		id, err := httpjson.ParseID(rawID)
		if err != nil {
			return models.Session{}, err
		}
		ids = append(ids, id)
	}

	sess, err := h.Relations.MarkAttendance(r.Context(), sessionID, ids)
	switch {
	case errors.Is(err, relation.ErrSessionNotFound):
		return models.Session{}, apperr.New(apperr.NotFound, "session not found")
	case errors.Is(err, relation.ErrUnknownAttendee):
		return models.Session{}, apperr.Wrap(apperr.NotFound, err.Error(), err)
	case err != nil:
		return models.Session{}, err
	}
	return sess, nil
}

// unmarshalStrict replays the already-read body through the strict decoder
// so unknown fields (including attendance mixed with other fields) are
// rejected, and validation messages match the normal Decode path.
func unmarshalStrict(raw map[string]json.RawMessage, dst *updateRequest) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	dec := json.NewDecoder(strings.NewReader(string(buf)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	return httpjson.Valid(dst)
}

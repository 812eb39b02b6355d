// internal/app/features/programs/handler.go
package programs

import (
	"errors"
	"net/http"
	"strings"
	"time"

	programstore "github.com/dalemusser/buildbee/internal/app/store/programs"
	"github.com/dalemusser/buildbee/internal/app/system/apperr"
	"github.com/dalemusser/buildbee/internal/app/system/htmlsanitize"
	"github.com/dalemusser/buildbee/internal/app/system/httpjson"
	"github.com/dalemusser/buildbee/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the /programs resource. Programs reference groups loosely
// (no reciprocal list), so everything here goes straight to the store.
type Handler struct {
	Programs *programstore.Store
	Log      *zap.Logger

	Now func() time.Time
}

func NewHandler(programs *programstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Programs: programs, Log: logger, Now: time.Now}
}

type activityRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	Completed   bool   `json:"completed"`
}

type durationRequest struct {
	Weeks int `json:"weeks" validate:"omitempty,min=1"`
	Days  int `json:"days" validate:"omitempty,min=1"`
}

type createRequest struct {
	Name        string            `json:"name" validate:"required"`
	Description string            `json:"description"`
	Type        string            `json:"type" validate:"required,oneof=regular camp"`
	Duration    durationRequest   `json:"duration" validate:"required"`
	Activities  []activityRequest `json:"activities" validate:"omitempty,dive"`
	Groups      []string          `json:"groups"`
	Status      string            `json:"status" validate:"omitempty,oneof=active inactive completed"`
	StartDate   time.Time         `json:"startDate" validate:"required"`
	EndDate     time.Time         `json:"endDate"`
}

type updateRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1"`
	Description *string    `json:"description"`
	Status      *string    `json:"status" validate:"omitempty,oneof=active inactive completed"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

type completedRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Programs.List(r.Context())
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

func (h *Handler) HandleActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.Programs.ListActive(r.Context(), h.Now())
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
	if req.Type == models.ProgramRegular && req.Duration.Weeks == 0 {
		httpjson.Error(w, h.Log, apperr.New(apperr.Validation, "duration.weeks is required for a regular program"))
		return
	}
	if req.Type == models.ProgramCamp && req.Duration.Days == 0 {
		httpjson.Error(w, h.Log, apperr.New(apperr.Validation, "duration.days is required for a camp"))
		return
	}

	groupIDs := make([]primitive.ObjectID, 0, len(req.Groups))
	for _, raw := range req.Groups {
		id, err := httpjson.ParseID(raw)
		if err != nil {
			httpjson.Error(w, h.Log, err)
			return
		}
		groupIDs = append(groupIDs, id)
	}

	activities := make([]models.Activity, 0, len(req.Activities))
	for i, a := range req.Activities {
		order := a.Order
		if order == 0 {
			order = i + 1
		}
		activities = append(activities, models.Activity{
			Name:        strings.TrimSpace(a.Name),
			Description: htmlsanitize.Clean(a.Description),
			Order:       order,
			Completed:   a.Completed,
		})
	}

	created, err := h.Programs.Create(r.Context(), models.Program{
		Name:        strings.TrimSpace(req.Name),
		Description: htmlsanitize.Clean(req.Description),
		Type:        req.Type,
		Duration: models.ProgramDuration{
			Weeks: req.Duration.Weeks,
			Days:  req.Duration.Days,
		},
		Activities: activities,
		GroupIDs:   groupIDs,
		Status:     req.Status,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if errors.Is(err, programstore.ErrDuplicateProgramName) {
		httpjson.Error(w, h.Log, apperr.Wrap(apperr.Conflict, err.Error(), err))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	h.Log.Info("program created", zap.String("program_id", created.ID.Hex()))
	httpjson.Write(w, http.StatusCreated, created)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	p, err := h.Programs.GetByID(r.Context(), id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "program not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// HandleProgress reports the derived completion percentage.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	p, err := h.Programs.GetByID(r.Context(), id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "program not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{
		"programId": p.ID,
		"progress":  p.Progress(),
	})
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
	if req.Status != nil {
		set["status"] = *req.Status
	}
	if req.StartDate != nil {
		set["start_date"] = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		set["end_date"] = req.EndDate.UTC()
	}
	if len(set) == 0 {
		httpjson.Error(w, h.Log, apperr.New(apperr.Validation, "no updatable fields in request body"))
		return
	}

	p, err := h.Programs.Update(r.Context(), id, set)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "program not found"))
		return
	case errors.Is(err, programstore.ErrDuplicateProgramName):
		httpjson.Error(w, h.Log, apperr.Wrap(apperr.Conflict, err.Error(), err))
		return
	case err != nil:
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// HandleActivityPatch flips the completed flag of one curriculum activity.
func (h *Handler) HandleActivityPatch(w http.ResponseWriter, r *http.Request) {
	programID, err := httpjson.IDParam(r, "programID")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	activityID, err := httpjson.IDParam(r, "activityID")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	var req completedRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	p, err := h.Programs.SetActivityCompleted(r.Context(), programID, activityID, *req.Completed)
	if errors.Is(err, programstore.ErrActivityNotFound) {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "program or activity not found"))
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.IDParam(r, "id")
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	n, err := h.Programs.Delete(r.Context(), id)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if n == 0 {
		httpjson.Error(w, h.Log, apperr.New(apperr.NotFound, "program not found"))
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "program deleted"})
}

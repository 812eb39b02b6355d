package programs_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/buildbee/internal/app/features/programs"
	programstore "github.com/dalemusser/buildbee/internal/app/store/programs"
	"github.com/dalemusser/buildbee/internal/domain/models"
	"github.com/dalemusser/buildbee/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(db *mongo.Database) *programs.Handler {
	return programs.NewHandler(programstore.New(db), zap.NewNop())
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreate_DerivesEndDate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := programs.Routes(newHandler(db))

	rec := doJSON(t, router, "POST", "/",
		`{"name":"Spring Robotics","type":"regular","duration":{"weeks":4},"startDate":"2024-01-01T00:00:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var created models.Program
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	want := time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC)
	if !created.EndDate.Equal(want) {
		t.Errorf("EndDate: got %v, want %v", created.EndDate, want)
	}
}

func TestHandleCreate_RegularNeedsWeeks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := programs.Routes(newHandler(db))

	rec := doJSON(t, router, "POST", "/",
		`{"name":"Spring Robotics","type":"regular","duration":{"days":5},"startDate":"2024-01-01T00:00:00Z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if !strings.Contains(resp["message"], "duration.weeks") {
		t.Errorf("message: got %q", resp["message"])
	}
}

func TestHandleCreate_CampNeedsDays(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := programs.Routes(newHandler(db))

	rec := doJSON(t, router, "POST", "/",
		`{"name":"Summer Camp","type":"camp","duration":{"weeks":2},"startDate":"2024-06-01T00:00:00Z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleCreate_ActivityOrderDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := programs.Routes(newHandler(db))

	rec := doJSON(t, router, "POST", "/",
		`{"name":"Spring Robotics","type":"regular","duration":{"weeks":4},"startDate":"2024-01-01T00:00:00Z",`+
			`"activities":[{"name":"Intro"},{"name":"Build"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var created models.Program
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(created.Activities) != 2 {
		t.Fatalf("Activities: got %d", len(created.Activities))
	}
	if created.Activities[0].Order != 1 || created.Activities[1].Order != 2 {
		t.Errorf("orders: got %d, %d", created.Activities[0].Order, created.Activities[1].Order)
	}
	for i, a := range created.Activities {
		if a.ID.IsZero() {
			t.Errorf("activity %d has no ID", i)
		}
	}
}

func TestHandleActive_FiltersByWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	running := fixtures.CreateProgram(ctx, "Running", now.AddDate(0, 0, -7))
	fixtures.CreateProgram(ctx, "Finished", now.AddDate(0, -6, 0))
	fixtures.CreateProgram(ctx, "Not Yet", now.AddDate(0, 1, 0))

	h := newHandler(db)
	h.Now = func() time.Time { return now }
	router := programs.Routes(h)

	rec := doJSON(t, router, "GET", "/active", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var list []models.Program
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("active programs: got %d, want 1", len(list))
	}
	if list[0].ID != running.ID {
		t.Errorf("active: got %q", list[0].Name)
	}
}

func TestHandleProgress(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := programs.Routes(newHandler(db))

	rec := doJSON(t, router, "POST", "/",
		`{"name":"Spring Robotics","type":"regular","duration":{"weeks":4},"startDate":"2024-01-01T00:00:00Z",`+
			`"activities":[{"name":"Intro"},{"name":"Build"},{"name":"Test"},{"name":"Demo"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rec.Code)
	}
	var created models.Program
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse response: %v", err)
	}

	patch := fmt.Sprintf("/%s/activities/%s", created.ID.Hex(), created.Activities[0].ID.Hex())
	if rec := doJSON(t, router, "PATCH", patch, `{"completed":true}`); rec.Code != http.StatusOK {
		t.Fatalf("patch: status %d (body %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, "GET", "/"+created.ID.Hex()+"/progress", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("progress: status %d", rec.Code)
	}
	var resp struct {
		ProgramID primitive.ObjectID `json:"programId"`
		Progress  float64            `json:"progress"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.ProgramID != created.ID {
		t.Errorf("programId: got %s", resp.ProgramID.Hex())
	}
	if resp.Progress != 25 {
		t.Errorf("progress: got %v, want 25", resp.Progress)
	}
}

func TestHandleActivityPatch_UnknownActivityIs404(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fixtures.CreateProgram(ctx, "Spring Robotics", time.Now().UTC())
	router := programs.Routes(newHandler(db))

	target := fmt.Sprintf("/%s/activities/%s", p.ID.Hex(), primitive.NewObjectID().Hex())
	rec := doJSON(t, router, "PATCH", target, `{"completed":true}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fixtures.CreateProgram(ctx, "Spring Robotics", time.Now().UTC())
	router := programs.Routes(newHandler(db))

	if rec := doJSON(t, router, "DELETE", "/"+p.ID.Hex(), ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	if rec := doJSON(t, router, "DELETE", "/"+p.ID.Hex(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

package sessions_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/buildbee/internal/app/features/sessions"
	sessionstore "github.com/dalemusser/buildbee/internal/app/store/sessions"
	"github.com/dalemusser/buildbee/internal/app/system/relation"
	"github.com/dalemusser/buildbee/internal/domain/models"
	"github.com/dalemusser/buildbee/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, db *mongo.Database) *sessions.Handler {
	t.Helper()
	h := sessions.NewHandler(db, sessionstore.New(db), relation.New(db, zap.NewNop()), zap.NewNop())
	return h
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

func TestHandleCreate_RegistersOnGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	router := sessions.Routes(newHandler(t, db))

	body := fmt.Sprintf(`{"name":"Week 1","date":"2024-03-01T10:00:00Z","duration":90,"groupId":%q}`, group.ID.Hex())
	rec := doJSON(t, router, "POST", "/", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var created models.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if created.Status != models.SessionUpcoming {
		t.Errorf("Status: got %q, want default %q", created.Status, models.SessionUpcoming)
	}

	var g models.Group
	if err := db.Collection("groups").FindOne(ctx, bson.M{"_id": group.ID}).Decode(&g); err != nil {
		t.Fatalf("load group: %v", err)
	}
	if len(g.SessionIDs) != 1 || g.SessionIDs[0] != created.ID {
		t.Errorf("group.SessionIDs: got %v, want [%s]", g.SessionIDs, created.ID.Hex())
	}
}

func TestHandleCreate_UnknownGroupIs404(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := sessions.Routes(newHandler(t, db))

	body := fmt.Sprintf(`{"name":"Week 1","date":"2024-03-01T10:00:00Z","duration":90,"groupId":%q}`, primitive.NewObjectID().Hex())
	rec := doJSON(t, router, "POST", "/", body)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleCreate_BadDateIs400(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := sessions.Routes(newHandler(t, db))

	body := fmt.Sprintf(`{"name":"Week 1","date":"03/01/2024","duration":90,"groupId":%q}`, primitive.NewObjectID().Hex())
	rec := doJSON(t, router, "POST", "/", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d (body %s)", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp["message"] == "" {
		t.Error("expected a message field")
	}
}

func TestHandleCreate_ZeroDuration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	router := sessions.Routes(newHandler(t, db))

	// Zero minutes is a valid duration.
	body := fmt.Sprintf(`{"name":"Week 1","date":"2024-03-01T10:00:00Z","duration":0,"groupId":%q}`, group.ID.Hex())
	rec := doJSON(t, router, "POST", "/", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var created models.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if created.Duration != 0 {
		t.Errorf("Duration: got %d, want 0", created.Duration)
	}

	var stored models.Session
	if err := db.Collection("sessions").FindOne(ctx, bson.M{"_id": created.ID}).Decode(&stored); err != nil {
		t.Fatalf("load session: %v", err)
	}
	if stored.Duration != 0 {
		t.Errorf("stored Duration: got %d, want 0", stored.Duration)
	}
}

func TestHandleCreate_MissingDurationIs400(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	router := sessions.Routes(newHandler(t, db))

	body := fmt.Sprintf(`{"name":"Week 1","date":"2024-03-01T10:00:00Z","groupId":%q}`, group.ID.Hex())
	rec := doJSON(t, router, "POST", "/", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("omitted duration: got %d, want %d", rec.Code, http.StatusBadRequest)
	}

	body = fmt.Sprintf(`{"name":"Week 1","date":"2024-03-01T10:00:00Z","duration":-5,"groupId":%q}`, group.ID.Hex())
	rec = doJSON(t, router, "POST", "/", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative duration: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleUpdate_ZeroDuration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	sess := fixtures.CreateSession(ctx, "Week 1", group.ID, "2024-03-01T10:00:00Z", models.SessionUpcoming)
	router := sessions.Routes(newHandler(t, db))

	rec := doJSON(t, router, "PUT", "/"+sess.ID.Hex(), `{"duration":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var updated models.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if updated.Duration != 0 {
		t.Errorf("Duration: got %d, want 0", updated.Duration)
	}
}

func TestHandleUpdate_AttendanceOnlyBody(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	ada := fixtures.CreateStudent(ctx, "Ada", "Lovelace", "ada@example.com")
	sess := fixtures.CreateSession(ctx, "Week 1", group.ID, "2024-03-01T10:00:00Z", models.SessionUpcoming)

	router := sessions.Routes(newHandler(t, db))

	body := fmt.Sprintf(`{"attendance":[%q]}`, ada.ID.Hex())
	rec := doJSON(t, router, "PUT", "/"+sess.ID.Hex(), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rec.Code, rec.Body.String())
	}

	var updated models.Session
	if err := db.Collection("sessions").FindOne(ctx, bson.M{"_id": sess.ID}).Decode(&updated); err != nil {
		t.Fatalf("load session: %v", err)
	}
	if len(updated.Attendance) != 1 || updated.Attendance[0] != ada.ID {
		t.Errorf("Attendance: got %v", updated.Attendance)
	}
	// The attendance-only body must leave every other field untouched.
	if updated.Name != "Week 1" || updated.Date != "2024-03-01T10:00:00Z" || updated.Status != models.SessionUpcoming {
		t.Errorf("other fields changed: %+v", updated)
	}
}

func TestHandleUpdate_FieldMerge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	ada := fixtures.CreateStudent(ctx, "Ada", "Lovelace", "ada@example.com")
	sess := fixtures.CreateSession(ctx, "Week 1", group.ID, "2024-03-01T10:00:00Z", models.SessionUpcoming)
	if _, err := db.Collection("sessions").UpdateByID(ctx, sess.ID, bson.M{
		"$set": bson.M{"attendance": bson.A{ada.ID}},
	}); err != nil {
		t.Fatalf("seed attendance: %v", err)
	}

	router := sessions.Routes(newHandler(t, db))

	rec := doJSON(t, router, "PUT", "/"+sess.ID.Hex(), `{"name":"Week 1 (moved)","status":"completed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rec.Code, rec.Body.String())
	}

	var updated models.Session
	if err := db.Collection("sessions").FindOne(ctx, bson.M{"_id": sess.ID}).Decode(&updated); err != nil {
		t.Fatalf("load session: %v", err)
	}
	if updated.Name != "Week 1 (moved)" || updated.Status != models.SessionCompleted {
		t.Errorf("fields: got name=%q status=%q", updated.Name, updated.Status)
	}
	// Attendance survives a field merge.
	if len(updated.Attendance) != 1 || updated.Attendance[0] != ada.ID {
		t.Errorf("Attendance: got %v", updated.Attendance)
	}
}

func TestHandleUpdate_GroupIDRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	sess := fixtures.CreateSession(ctx, "Week 1", group.ID, "2024-03-01T10:00:00Z", models.SessionUpcoming)

	router := sessions.Routes(newHandler(t, db))

	body := fmt.Sprintf(`{"name":"renamed","groupId":%q}`, primitive.NewObjectID().Hex())
	rec := doJSON(t, router, "PUT", "/"+sess.ID.Hex(), body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleUpdate_AttendanceMixedWithFieldsRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	sess := fixtures.CreateSession(ctx, "Week 1", group.ID, "2024-03-01T10:00:00Z", models.SessionUpcoming)

	router := sessions.Routes(newHandler(t, db))

	rec := doJSON(t, router, "PUT", "/"+sess.ID.Hex(), `{"name":"renamed","attendance":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAttendanceScenario_SecondMarkReplaces(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	s1 := fixtures.CreateStudent(ctx, "Ada", "Lovelace", "ada@example.com")
	s2 := fixtures.CreateStudent(ctx, "Grace", "Hopper", "grace@example.com")
	sess := fixtures.CreateSession(ctx, "Week 1", group.ID, "2024-03-01T10:00:00Z", models.SessionCompleted)

	router := sessions.Routes(newHandler(t, db))

	rec := doJSON(t, router, "PUT", "/"+sess.ID.Hex(),
		fmt.Sprintf(`{"attendance":[%q,%q]}`, s1.ID.Hex(), s2.ID.Hex()))
	if rec.Code != http.StatusOK {
		t.Fatalf("first mark: status %d (body %s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, "PUT", "/"+sess.ID.Hex(),
		fmt.Sprintf(`{"attendance":[%q]}`, s2.ID.Hex()))
	if rec.Code != http.StatusOK {
		t.Fatalf("second mark: status %d (body %s)", rec.Code, rec.Body.String())
	}

	var updated models.Session
	if err := db.Collection("sessions").FindOne(ctx, bson.M{"_id": sess.ID}).Decode(&updated); err != nil {
		t.Fatalf("load session: %v", err)
	}
	if len(updated.Attendance) != 1 || updated.Attendance[0] != s2.ID {
		t.Errorf("Attendance: got %v, want only the second student", updated.Attendance)
	}
}

func TestHandleUpdate_UnknownAttendeeIs404(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	sess := fixtures.CreateSession(ctx, "Week 1", group.ID, "2024-03-01T10:00:00Z", models.SessionUpcoming)

	router := sessions.Routes(newHandler(t, db))

	rec := doJSON(t, router, "PUT", "/"+sess.ID.Hex(),
		fmt.Sprintf(`{"attendance":[%q]}`, primitive.NewObjectID().Hex()))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleUpcoming_UsesHandlerClock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	fixtures.CreateSession(ctx, "Past", group.ID, "2024-02-01T10:00:00Z", models.SessionCompleted)
	fixtures.CreateSession(ctx, "Future", group.ID, "2024-04-01T10:00:00Z", models.SessionUpcoming)

	h := newHandler(t, db)
	h.Now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	router := sessions.Routes(h)

	rec := doJSON(t, router, "GET", "/upcoming", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var list []models.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Future" {
		t.Errorf("got %d sessions, want only Future", len(list))
	}
}

func TestHandleGet_DetailShape(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	ada := fixtures.CreateStudent(ctx, "Ada", "Lovelace", "ada@example.com")
	fixtures.LinkStudentToGroup(ctx, ada.ID, group.ID)
	sess := fixtures.CreateSession(ctx, "Week 1", group.ID, "2024-03-01T10:00:00Z", models.SessionUpcoming)

	router := sessions.Routes(newHandler(t, db))

	rec := doJSON(t, router, "GET", "/"+sess.ID.Hex(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var detail struct {
		Group *struct {
			Name     string `json:"name"`
			Students []struct {
				FirstName string `json:"firstName"`
			} `json:"students"`
		} `json:"group"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if detail.Group == nil || detail.Group.Name != "Robotics" {
		t.Fatalf("group: got %+v", detail.Group)
	}
	if len(detail.Group.Students) != 1 || detail.Group.Students[0].FirstName != "Ada" {
		t.Errorf("group.students: got %+v", detail.Group.Students)
	}
}

func TestHandleDelete_RemovesBackRef(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fixtures.CreateGroup(ctx, "Robotics")
	sess := fixtures.CreateSession(ctx, "Week 1", group.ID, "2024-03-01T10:00:00Z", models.SessionUpcoming)

	router := sessions.Routes(newHandler(t, db))

	rec := doJSON(t, router, "DELETE", "/"+sess.ID.Hex(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var g models.Group
	if err := db.Collection("groups").FindOne(ctx, bson.M{"_id": group.ID}).Decode(&g); err != nil {
		t.Fatalf("load group: %v", err)
	}
	if len(g.SessionIDs) != 0 {
		t.Errorf("group.SessionIDs: got %v, want empty", g.SessionIDs)
	}
}

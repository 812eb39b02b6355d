package login_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/buildbee/internal/app/features/login"
	staffstore "github.com/dalemusser/buildbee/internal/app/store/staff"
	"github.com/dalemusser/buildbee/internal/app/system/auth"
	"github.com/dalemusser/buildbee/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// newRouter wires the /auth subrouter behind the session middleware, the
// same shape bootstrap mounts it in.
func newRouter(t *testing.T, db *mongo.Database) http.Handler {
	t.Helper()
	if err := auth.InitSessionStore("test-session-key-0123456789abcdef", "", false, zap.NewNop()); err != nil {
		t.Fatalf("init session store: %v", err)
	}
	h := login.NewHandler(staffstore.New(db), zap.NewNop())
	return auth.LoadSessionStaff(login.Routes(h))
}

func doJSON(t *testing.T, h http.Handler, method, target, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createStaff(t *testing.T, db *mongo.Database, email, password string) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := staffstore.New(db).Create(ctx, "Pat Tester", email, password, "admin"); err != nil {
		t.Fatalf("create staff: %v", err)
	}
}

func TestHandleLogin_SetsSessionCookie(t *testing.T) {
	db := testutil.SetupTestDB(t)
	createStaff(t, db, "pat@example.com", "correct-horse")
	router := newRouter(t, db)

	rec := doJSON(t, router, "POST", "/login",
		`{"email":"pat@example.com","password":"correct-horse"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rec.Code, rec.Body.String())
	}

	var staff auth.SessionStaff
	if err := json.Unmarshal(rec.Body.Bytes(), &staff); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if staff.Email != "pat@example.com" || staff.Role != "admin" {
		t.Errorf("staff: got %+v", staff)
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("no session cookie set")
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	createStaff(t, db, "pat@example.com", "correct-horse")
	router := newRouter(t, db)

	rec := doJSON(t, router, "POST", "/login",
		`{"email":"pat@example.com","password":"wrong"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp["message"] != "invalid email or password" {
		t.Errorf("message: got %q", resp["message"])
	}
}

func TestHandleLogin_UnknownEmailSameMessage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newRouter(t, db)

	rec := doJSON(t, router, "POST", "/login",
		`{"email":"nobody@example.com","password":"anything"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp["message"] != "invalid email or password" {
		t.Errorf("message: got %q, want the same answer as a wrong password", resp["message"])
	}
}

func TestHandleMe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	createStaff(t, db, "pat@example.com", "correct-horse")
	router := newRouter(t, db)

	rec := doJSON(t, router, "GET", "/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous /me: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	loginRec := doJSON(t, router, "POST", "/login",
		`{"email":"pat@example.com","password":"correct-horse"}`, nil)
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login: status %d", loginRec.Code)
	}

	rec = doJSON(t, router, "GET", "/me", "", loginRec.Result().Cookies())
	if rec.Code != http.StatusOK {
		t.Fatalf("signed-in /me: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var staff auth.SessionStaff
	if err := json.Unmarshal(rec.Body.Bytes(), &staff); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if staff.Email != "pat@example.com" {
		t.Errorf("Email: got %q", staff.Email)
	}
}

func TestHandleLogout_ExpiresCookie(t *testing.T) {
	db := testutil.SetupTestDB(t)
	createStaff(t, db, "pat@example.com", "correct-horse")
	router := newRouter(t, db)

	loginRec := doJSON(t, router, "POST", "/login",
		`{"email":"pat@example.com","password":"correct-horse"}`, nil)
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login: status %d", loginRec.Code)
	}

	rec := doJSON(t, router, "POST", "/logout", "", loginRec.Result().Cookies())
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rec.Code)
	}
	var expired bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionName && c.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Error("session cookie was not expired")
	}
}

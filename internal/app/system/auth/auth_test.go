package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/buildbee/internal/app/system/auth"
	"go.uber.org/zap"
)

func initStore(t *testing.T) {
	t.Helper()
	if err := auth.InitSessionStore("test-session-key-must-be-32-chars-long", "", false, zap.NewNop()); err != nil {
		t.Fatalf("InitSessionStore failed: %v", err)
	}
}

func TestRequireSignedIn_NoSession_Returns401JSON(t *testing.T) {
	initStore(t)

	handler := auth.LoadSessionStaff(auth.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/students", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Message == "" {
		t.Error("expected a message field in the 401 body")
	}
}

func TestSignIn_ThenRequestPassesMiddleware(t *testing.T) {
	initStore(t)

	// Sign in, capture the cookie.
	signInRec := httptest.NewRecorder()
	signInReq := httptest.NewRequest("POST", "/auth/login", nil)
	err := auth.SignIn(signInRec, signInReq, auth.SessionStaff{
		ID:    "6613f00000000000000000aa",
		Name:  "Admin",
		Email: "admin@example.com",
		Role:  "admin",
	})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	cookies := signInRec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("SignIn set no cookie")
	}

	var seen *auth.SessionStaff
	handler := auth.LoadSessionStaff(auth.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.CurrentStaff(r)
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/students", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if seen == nil || seen.Email != "admin@example.com" || seen.Role != "admin" {
		t.Errorf("CurrentStaff: got %+v", seen)
	}
}

func TestSignOut_ClearsSession(t *testing.T) {
	initStore(t)

	signInRec := httptest.NewRecorder()
	signInReq := httptest.NewRequest("POST", "/auth/login", nil)
	if err := auth.SignIn(signInRec, signInReq, auth.SessionStaff{ID: "x", Email: "a@b.c"}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	outReq := httptest.NewRequest("POST", "/auth/logout", nil)
	for _, c := range signInRec.Result().Cookies() {
		outReq.AddCookie(c)
	}
	outRec := httptest.NewRecorder()
	if err := auth.SignOut(outRec, outReq); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	// The replacement cookie must be expired.
	expired := false
	for _, c := range outRec.Result().Cookies() {
		if c.Name == auth.SessionName && c.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Error("SignOut did not expire the session cookie")
	}
}

func TestInitSessionStore_EmptyKeyGeneratesOne(t *testing.T) {
	if err := auth.InitSessionStore("", "", false, zap.NewNop()); err != nil {
		t.Fatalf("InitSessionStore with empty key failed: %v", err)
	}
	if auth.Store == nil {
		t.Fatal("Store not initialized")
	}
}

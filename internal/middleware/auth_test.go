package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authpkg "github.com/dukerupert/punchcard/internal/auth"
	"github.com/dukerupert/punchcard/internal/database"
	"github.com/dukerupert/punchcard/internal/store"
)

func setupAuth(t *testing.T) (*authpkg.TokenIssuer, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return authpkg.NewTokenIssuer("test-secret", time.Hour), store.NewUserStore(db)
}

func okHandler(t *testing.T, wantUserID int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := authpkg.UserID(r.Context()); got != wantUserID {
			t.Errorf("context user id = %d, want %d", got, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	tokens, users := setupAuth(t)
	u, err := users.Create("w@example.com", "h", "", "", false)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := tokens.Issue(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := RequireAuth(tokens, users)(okHandler(t, u.ID))
	req := httptest.NewRequest(http.MethodGet, "/api/events/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	tokens, users := setupAuth(t)

	handler := RequireAuth(tokens, users)(okHandler(t, 0))
	req := httptest.NewRequest(http.MethodGet, "/api/events/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthRejectsDeletedUser(t *testing.T) {
	tokens, users := setupAuth(t)
	u, err := users.Create("gone@example.com", "h", "", "", false)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, _ := tokens.Issue(u)
	if err := users.Delete(u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	handler := RequireAuth(tokens, users)(okHandler(t, u.ID))
	req := httptest.NewRequest(http.MethodGet, "/api/events/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthRejectsDeactivatedUser(t *testing.T) {
	tokens, users := setupAuth(t)
	u, err := users.Create("inactive@example.com", "h", "", "", false)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, _ := tokens.Issue(u)
	if _, err := users.Update(u.ID, u.Email, u.FirstName, u.LastName, false, false); err != nil {
		t.Fatalf("deactivate user: %v", err)
	}

	handler := RequireAuth(tokens, users)(okHandler(t, u.ID))
	req := httptest.NewRequest(http.MethodGet, "/api/events/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	tokens, users := setupAuth(t)
	admin, _ := users.Create("admin@example.com", "h", "", "", true)
	regular, _ := users.Create("user@example.com", "h", "", "", false)

	handler := RequireAuth(tokens, users)(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	adminToken, _ := tokens.Issue(admin)
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}

	userToken, _ := tokens.Issue(regular)
	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin status = %d, want 403", rec.Code)
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4", 3, time.Minute) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4", 3, time.Minute) {
		t.Error("fourth request should be limited")
	}
	if !rl.Allow("5.6.7.8", 3, time.Minute) {
		t.Error("other keys should be unaffected")
	}
}

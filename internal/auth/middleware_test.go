package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quizgate/internal/models"
)

const testSecret = "test-secret"

func issue(t *testing.T, id uint, role string, ttl time.Duration) string {
	t.Helper()
	token, err := IssueToken(&models.User{ID: id, Username: "u", Role: role}, []byte(testSecret), ttl)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func TestParseToken(t *testing.T) {
	token := issue(t, 42, models.RoleTeacher, time.Hour)

	id, role, err := ParseToken(token, testSecret)
	if err != nil || id != 42 || role != models.RoleTeacher {
		t.Fatalf("ParseToken = %d, %q, %v", id, role, err)
	}
	if _, _, err := ParseToken(token, "other-secret"); err == nil {
		t.Fatalf("wrong secret should fail")
	}
	if _, _, err := ParseToken(issue(t, 42, models.RoleTeacher, -time.Minute), testSecret); err == nil {
		t.Fatalf("expired token should fail")
	}
}

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		if !ok || id != 42 {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestJWTMiddleware(t *testing.T) {
	mw := JWTMiddleware(testSecret)(identityEcho())
	token := issue(t, 42, models.RoleStudent, time.Hour)

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer header", "Bearer " + token, "", http.StatusNoContent},
		{"query token", "", "?token=" + token, http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/x"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.status == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"error":"unauthorized"`) {
				t.Fatalf("unexpected body %s", rec.Body)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	guard := RequireRole(models.RoleTeacher)(identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req.WithContext(WithIdentity(req.Context(), 42, models.RoleStudent)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("student should be forbidden, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	guard.ServeHTTP(rec, req.WithContext(WithIdentity(req.Context(), 42, models.RoleTeacher)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("teacher should pass, got %d", rec.Code)
	}
}

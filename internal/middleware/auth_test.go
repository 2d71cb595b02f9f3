package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/petrhale/focustrack/internal/request"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret-key")

func signToken(t *testing.T, subject string, expiry time.Time) string {
	t.Helper()

	tok, err := jwt.NewBuilder().
		Subject(subject).
		Claim("email", "dev@example.com").
		IssuedAt(time.Now()).
		Expiration(expiry).
		Build()
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return string(signed)
}

func TestAuthValidToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	var gotUserID uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := request.UserFromContext(r); user != nil {
			gotUserID = user.ID
		}
		w.WriteHeader(http.StatusNoContent)
	})

	handler := Auth(testSecret, zap.NewNop())(next)

	r := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, userID.String(), time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if gotUserID != userID {
		t.Errorf("expected user %s in context, got %s", userID, gotUserID)
	}
}

func TestAuthRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "expired token", header: "Bearer " + signToken(t, uuid.NewString(), time.Now().Add(-time.Hour))},
		{name: "non-uuid subject", header: "Bearer " + signToken(t, "alice", time.Now().Add(time.Hour))},
	}

	handler := Auth(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run")
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("GET", "/api/v1/tasks", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestRequireJSON(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireJSON(next)

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		expected    int
	}{
		{name: "json post accepted", method: "POST", contentType: "application/json", body: "{}", expected: http.StatusNoContent},
		{name: "json with charset accepted", method: "PUT", contentType: "application/json; charset=utf-8", body: "{}", expected: http.StatusNoContent},
		{name: "text post rejected", method: "POST", contentType: "text/plain", body: "hi", expected: http.StatusUnsupportedMediaType},
		{name: "get without body passes", method: "GET", contentType: "", body: "", expected: http.StatusNoContent},
		{name: "empty post body passes", method: "POST", contentType: "", body: "", expected: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var reqBody io.Reader
			if tt.body != "" {
				reqBody = strings.NewReader(tt.body)
			}
			r := httptest.NewRequest(tt.method, "/api/v1/tasks", reqBody)
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amanpay/appcore/internal/models"
)

type fakeVerifier struct {
	userID string
	err    error
}

func (f *fakeVerifier) VerifyAccess(token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.userID, nil
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		verifier   *fakeVerifier
		wantCode   int
		wantUserID string
	}{
		{"no header", "", &fakeVerifier{userID: "7"}, http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", &fakeVerifier{userID: "7"}, http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", &fakeVerifier{userID: "7"}, http.StatusUnauthorized, ""},
		{"invalid token", "Bearer bad", &fakeVerifier{err: errors.New("expired")}, http.StatusUnauthorized, ""},
		{"valid token", "Bearer good", &fakeVerifier{userID: "7"}, http.StatusOK, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID = GetUserIDFromContext(r.Context())
			})

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			BearerAuth(tt.verifier)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status %d, want %d", rec.Code, tt.wantCode)
			}
			if gotUserID != tt.wantUserID {
				t.Errorf("user id %q, want %q", gotUserID, tt.wantUserID)
			}
			if tt.wantCode == http.StatusUnauthorized {
				if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("content type %q, want application/json", ct)
				}
				var errBody models.ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
					t.Fatalf("decode error body: %v", err)
				}
				if errBody.Detail == "" {
					t.Error("expected a detail message in the error body")
				}
			}
		})
	}
}

func TestGetUserIDFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserIDFromContext(req.Context()); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

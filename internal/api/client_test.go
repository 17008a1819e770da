package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amanpay/appcore/internal/models"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(srv.URL, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client, srv
}

func TestLoginSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req models.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.PhoneNumber != "+998901234567" || req.Password != "password1" {
			t.Errorf("unexpected payload %+v", req)
		}
		_ = json.NewEncoder(w).Encode(models.AuthSuccess{
			Access:  "a",
			Refresh: "r",
			User:    models.ProfileRecord{ID: 1, PhoneNumber: req.PhoneNumber},
		})
	}))

	res, err := client.Login(context.Background(), "+998901234567", "password1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Access != "a" || res.Refresh != "r" || res.User.ID != 1 {
		t.Errorf("unexpected response %+v", res)
	}
}

func TestStatusErrorCarriesDetail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Detail: "invalid credentials"})
	}))

	_, err := client.Login(context.Background(), "+998901234567", "nope")
	var status *StatusError
	if !errors.As(err, &status) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if status.Code != 401 || status.Detail != "invalid credentials" {
		t.Errorf("unexpected status error %+v", status)
	}
}

func TestStatusErrorWithoutBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Login(context.Background(), "p", "w")
	var status *StatusError
	if !errors.As(err, &status) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if status.Code != 502 || status.Detail != "" {
		t.Errorf("unexpected status error %+v", status)
	}
}

func TestDecodeErrorOnMalformedSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))

	_, err := client.Login(context.Background(), "p", "w")
	var decode *DecodeError
	if !errors.As(err, &decode) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listening anymore

	client, err := New(url, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = client.Login(context.Background(), "p", "w")
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/refresh/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req models.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Refresh != "r" {
			t.Errorf("unexpected refresh token %q", req.Refresh)
		}
		_ = json.NewEncoder(w).Encode(models.RefreshResponse{Access: "fresh"})
	}))

	access, err := client.Refresh(context.Background(), "r")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if access != "fresh" {
		t.Errorf("expected fresh, got %q", access)
	}
}

func TestMeTriesCandidatesInOrder(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path != "/api/users/me/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("missing bearer header, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(models.ProfileRecord{ID: 9, PhoneNumber: "+998900000009"})
	}))

	profile, err := client.Me(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if profile.ID != 9 {
		t.Errorf("unexpected profile %+v", profile)
	}
	want := []string{"/api/auth/me/", "/api/users/me/"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d requests, got %v", len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("request %d hit %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestMeAllCandidatesFail(t *testing.T) {
	var count int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Me(context.Background(), "tok")
	var status *StatusError
	if !errors.As(err, &status) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if count != len(profilePaths) {
		t.Errorf("expected %d attempts, got %d", len(profilePaths), count)
	}
}

package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/amanpay/appcore/internal/middleware"
	"github.com/amanpay/appcore/internal/models"
	"go.uber.org/zap"
)

// Handler serves the auth and profile endpoints.
type Handler struct {
	Users  *UserStore
	Tokens *TokenIssuer
	Log    *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, models.ErrorResponse{Detail: detail})
}

// Register handles POST /api/auth/register/. A valid request creates the
// user and returns the token pair plus profile, same shape as login.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "phone_number and password are required")
		return
	}

	profile, err := h.Users.Create(req.PhoneNumber, req.FirstName, req.LastName, req.Password)
	if err != nil {
		if errors.Is(err, ErrExists) {
			writeDetail(w, http.StatusConflict, "phone number already registered")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.respondWithTokens(w, profile)
}

// Login handles POST /api/auth/login/.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "phone_number and password are required")
		return
	}

	profile, err := h.Users.Authenticate(req.PhoneNumber, req.Password)
	if err != nil {
		// Unknown phone and wrong password answer identically.
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.respondWithTokens(w, profile)
}

func (h *Handler) respondWithTokens(w http.ResponseWriter, profile models.ProfileRecord) {
	access, refresh, err := h.Tokens.Issue(profile.ID)
	if err != nil {
		h.Log.Error("token issue failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, models.AuthSuccess{
		Access:  access,
		Refresh: refresh,
		User:    profile,
	})
}

// Refresh handles POST /api/auth/refresh/: a valid refresh token yields
// a fresh access token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		writeDetail(w, http.StatusBadRequest, "refresh is required")
		return
	}
	subject, err := h.Tokens.VerifyRefresh(req.Refresh)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	access, err := h.Tokens.sign(id, "access", accessTTL)
	if err != nil {
		h.Log.Error("token issue failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, models.RefreshResponse{Access: access})
}

// Me handles GET /api/auth/me/ behind BearerAuth.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject := middleware.GetUserIDFromContext(r.Context())
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return
	}
	profile, err := h.Users.ByID(id)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Package models defines the data structures shared by the session,
// profile, and API layers.
package models

// ProfileRecord is the cached representation of the authenticated user.
// It is not confidential and lives in the non-secure storage tier.
type ProfileRecord struct {
	// ID is the numeric server-side identifier of the user.
	ID int64 `json:"id"`
	// PhoneNumber is the login identifier in E.164 form.
	PhoneNumber string `json:"phone_number"`
	// FirstName is optional and may be empty.
	FirstName string `json:"first_name,omitempty"`
	// LastName is optional and may be empty.
	LastName string `json:"last_name,omitempty"`
	// Email is optional and may be empty.
	Email string `json:"email,omitempty"`
}

// TokenPair holds the access and refresh tokens issued by the backend.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// LoginRequest is the JSON payload for POST /api/auth/login/.
type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// RegisterRequest is the JSON payload for POST /api/auth/register/.
type RegisterRequest struct {
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Password    string `json:"password"`
}

// AuthSuccess is the response body of a successful login or register call.
type AuthSuccess struct {
	Access  string        `json:"access"`
	Refresh string        `json:"refresh"`
	User    ProfileRecord `json:"user"`
}

// RefreshRequest is the JSON payload for POST /api/auth/refresh/.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse carries the re-issued access token.
type RefreshResponse struct {
	Access string `json:"access"`
}

// ErrorResponse is the error body shape used by the backend.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

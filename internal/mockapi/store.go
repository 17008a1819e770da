// Package mockapi implements a self-contained development backend for
// the auth and profile endpoints, so the client runs against localhost
// with zero external services. Users live in memory and vanish on
// restart; that is the point.
package mockapi

import (
	"errors"
	"sync"

	"github.com/amanpay/appcore/internal/models"
)

// ErrExists is returned when registering an already-known phone number.
var ErrExists = errors.New("mockapi: phone already registered")

// ErrNotFound is returned for unknown phone numbers or user ids.
var ErrNotFound = errors.New("mockapi: user not found")

// ErrBadCredentials is returned on a password mismatch.
var ErrBadCredentials = errors.New("mockapi: bad credentials")

type user struct {
	profile  models.ProfileRecord
	password string
}

// UserStore is the in-memory user registry.
type UserStore struct {
	mu      sync.Mutex
	byPhone map[string]*user
	byID    map[int64]*user
	nextID  int64
}

// NewUserStore creates an empty registry.
func NewUserStore() *UserStore {
	return &UserStore{
		byPhone: make(map[string]*user),
		byID:    make(map[int64]*user),
		nextID:  1,
	}
}

// Create registers a new user and returns the profile.
func (s *UserStore) Create(phone, first, last, password string) (models.ProfileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPhone[phone]; ok {
		return models.ProfileRecord{}, ErrExists
	}
	u := &user{
		profile: models.ProfileRecord{
			ID:          s.nextID,
			PhoneNumber: phone,
			FirstName:   first,
			LastName:    last,
		},
		password: password,
	}
	s.nextID++
	s.byPhone[phone] = u
	s.byID[u.profile.ID] = u
	return u.profile, nil
}

// Authenticate checks phone+password and returns the profile.
func (s *UserStore) Authenticate(phone, password string) (models.ProfileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byPhone[phone]
	if !ok {
		return models.ProfileRecord{}, ErrNotFound
	}
	if u.password != password {
		return models.ProfileRecord{}, ErrBadCredentials
	}
	return u.profile, nil
}

// ByID returns the profile for a user id.
func (s *UserStore) ByID(id int64) (models.ProfileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return models.ProfileRecord{}, ErrNotFound
	}
	return u.profile, nil
}

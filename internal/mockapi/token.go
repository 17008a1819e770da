package mockapi

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 30 * 24 * time.Hour
)

// TokenIssuer signs and validates the HS256 access/refresh tokens the
// mock backend hands out.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer creates an issuer with the given signing secret.
func NewTokenIssuer(secret []byte) *TokenIssuer {
	return &TokenIssuer{secret: secret}
}

type claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Issue mints an access+refresh pair for userID.
func (t *TokenIssuer) Issue(userID int64) (access, refresh string, err error) {
	access, err = t.sign(userID, "access", accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = t.sign(userID, "refresh", refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (t *TokenIssuer) sign(userID int64, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(t.secret)
}

// VerifyAccess validates an access token and returns the subject.
// Satisfies middleware.TokenVerifier.
func (t *TokenIssuer) VerifyAccess(token string) (string, error) {
	return t.verify(token, "access")
}

// VerifyRefresh validates a refresh token and returns the subject.
func (t *TokenIssuer) VerifyRefresh(token string) (string, error) {
	return t.verify(token, "refresh")
}

func (t *TokenIssuer) verify(raw, kind string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}
	if c.Kind != kind {
		return "", errors.New("wrong token kind")
	}
	return c.Subject, nil
}

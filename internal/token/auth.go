package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/therapease/booking-server-go/internal/errors"
	"github.com/therapease/booking-server-go/internal/model"
)

// AuthClaims are carried by login access and refresh tokens.
type AuthClaims struct {
	Role model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// AuthIssuer signs the short-lived access token and the longer-lived
// refresh token with separate secrets.
type AuthIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *AuthIssuer {
	return &AuthIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (i *AuthIssuer) IssueAccess(userID string, role model.UserRole) (string, error) {
	return signAuth(i.accessSecret, userID, role, i.accessTTL)
}

func (i *AuthIssuer) IssueRefresh(userID string, role model.UserRole) (string, error) {
	return signAuth(i.refreshSecret, userID, role, i.refreshTTL)
}

func (i *AuthIssuer) VerifyAccess(raw string) (*AuthClaims, error) {
	return verifyAuth(i.accessSecret, raw)
}

func (i *AuthIssuer) VerifyRefresh(raw string) (*AuthClaims, error) {
	return verifyAuth(i.refreshSecret, raw)
}

func signAuth(secret []byte, userID string, role model.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AuthClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign auth token: %w", err)
	}
	return signed, nil
}

func verifyAuth(secret []byte, raw string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.InvalidToken("Invalid token").WithCause(err)
	}
	return claims, nil
}

// Package token issues and verifies the signed bearer tokens mailed to a
// user after booking. The confirmation and cancelation links carry these
// tokens so no login is needed to act on them.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/therapease/booking-server-go/internal/errors"
)

// Use distinguishes the two tokens issued per booking.
type Use string

const (
	UseConfirm Use = "confirm"
	UseCancel  Use = "cancel"
)

type Claims struct {
	SessionID string `json:"sessionId"`
	Use       Use    `json:"use"`
	jwt.RegisteredClaims
}

// Issuer signs booking tokens with an HMAC secret.
type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// Issue signs a token for userID acting on sessionID, valid for ttl.
func (i *Issuer) Issue(userID, sessionID string, use Use, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		Use:       use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and that it was issued for
// sessionID with the given use. It returns the subject (user id) on success.
func (i *Issuer) Verify(raw, sessionID string, use Use) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperrors.TokenExpired()
		}
		return "", apperrors.InvalidToken("Invalid token").WithCause(err)
	}

	if claims.SessionID != sessionID {
		return "", apperrors.InvalidToken("Token was issued for another session")
	}
	if claims.Use != use {
		return "", apperrors.InvalidToken("Token was issued for another purpose")
	}

	return claims.Subject, nil
}

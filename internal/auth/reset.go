package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidResetToken = errors.New("invalid reset token")

const (
	ResetTokenTTL = time.Hour
	resetSubject  = "password-reset"
)

type resetClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// ResetTokens issues and verifies the signed, short lived tokens of the password reset flow
type ResetTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewResetTokens(secret string) (*ResetTokens, error) {
	if secret == "" {
		return nil, errors.New("empty reset token secret")
	}
	return &ResetTokens{
		secret: []byte(secret),
		ttl:    ResetTokenTTL,
		now:    time.Now,
	}, nil
}

func (rt *ResetTokens) WithClock(now func() time.Time) *ResetTokens {
	rt.now = now
	return rt
}

func (rt *ResetTokens) Issue(userID string) (string, error) {
	now := rt.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   resetSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(rt.ttl)),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(rt.secret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// Verify returns the user a token was issued for
func (rt *ResetTokens) Verify(tokenString string) (string, error) {
	claims := &resetClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) {
			return rt.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(resetSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(rt.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidResetToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidResetToken
	}

	return claims.UserID, nil
}

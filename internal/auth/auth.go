package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadState = errors.New("invalid oauth state")

const (
	stateTTL     = 10 * time.Minute
	stateSubject = "zoom-oauth"
)

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// MakeState signs the opaque state value sent to the authorization server.
// Nothing is stored server-side; the callback only has to verify it.
func MakeState(secret string) (string, error) {
	now := time.Now()
	c := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   stateSubject,
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func ParseState(raw, secret string) error {
	if raw == "" {
		return ErrBadState
	}
	tok, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadState
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	c, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || !tok.Valid || c.Subject != stateSubject {
		return ErrBadState
	}
	return nil
}

// EncryptPlainToken answers Zoom's endpoint.url_validation challenge:
// hex(HMAC-SHA256(secret, plainToken)).
func EncryptPlainToken(secret, plainToken string) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(plainToken))
	return hex.EncodeToString(m.Sum(nil))
}

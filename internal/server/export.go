package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const exportAudience = "plan-export"

// ErrInvalidExportToken is returned for tokens that are malformed, expired
// or signed with another key.
var ErrInvalidExportToken = errors.New("invalid or expired export link")

// ExportSigner issues and checks HS256 tokens for PDF download links.
type ExportSigner struct {
	secret []byte
	now    func() time.Time
}

// NewExportSigner creates a signer. With an empty key a random one is
// generated, so links only survive until restart.
func NewExportSigner(key string) (*ExportSigner, error) {
	secret := []byte(key)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate export signing key: %w", err)
		}
	}
	return &ExportSigner{secret: secret, now: time.Now}, nil
}

// Sign returns a token granting access to the export of planID for ttl.
func (s *ExportSigner) Sign(planID string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": planID,
		"iat": now.Unix(),
		"exp": expires.Unix(),
		"aud": exportAudience,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign export token: %w", err)
	}
	return signed, expires, nil
}

// Verify returns the plan id carried by a valid token.
func (s *ExportSigner) Verify(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(exportAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidExportToken
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidExportToken
	}
	return sub, nil
}

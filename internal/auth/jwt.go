package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Togather-Foundation/social-events/internal/domain/document"
	"github.com/golang-jwt/jwt/v5"
)

// ProviderDevelopment marks identities minted by DevVerifier.
const ProviderDevelopment = "development"

// Claims carried by development tokens. Subject holds the uid.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// DevVerifier issues and checks HS256 tokens signed with a key derived from
// a shared secret. It replaces Firebase in local development and tests.
type DevVerifier struct {
	key    []byte
	ttl    time.Duration
	issuer string
	parser *jwt.Parser
}

func NewDevVerifier(secret string, ttl time.Duration, issuer string) (*DevVerifier, error) {
	key, err := DeriveDevTokenKey([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("dev verifier: %w", err)
	}
	return &DevVerifier{
		key:    key,
		ttl:    ttl,
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Generate mints a token for uid and email valid for the configured ttl.
func (v *DevVerifier) Generate(uid, email string) (string, error) {
	if uid == "" || strings.TrimSpace(email) == "" {
		return "", ErrInvalidToken
	}

	issued := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(v.ttl)),
		},
	}).SignedString(v.key)
}

// Validate parses raw and checks signature, issuer and expiry. Every failure
// collapses to ErrInvalidToken.
func (v *DevVerifier) Validate(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMissingToken
	}

	var claims Claims
	token, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (v *DevVerifier) Verify(_ context.Context, raw string) (*Identity, error) {
	claims, err := v.Validate(raw)
	if err != nil {
		return nil, err
	}
	email := document.NormalizeEmail(claims.Email)
	if email == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{UID: claims.Subject, Email: email, Provider: ProviderDevelopment}, nil
}

// Package auth issues and checks the bearer tokens that guard the record
// endpoints of the HTTP API.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes understood by the API
const (
	ScopeRecordsWrite  = "records:write"
	ScopeRecordsDelete = "records:delete"
)

// DefaultIssuer is stamped into every token and required on validation
const DefaultIssuer = "metaschema"

// ErrInvalidToken wraps every token rejection
var ErrInvalidToken = errors.New("invalid token")

// Claims is the validated content of a token
type Claims struct {
	Subject   string
	Scopes    []string
	ExpiresAt time.Time
}

// HasScope reports whether the token grants scope
func (c Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// Service signs and validates HS256 tokens
type Service struct {
	secretKey []byte
	tokenTTL  time.Duration
	issuer    string
	now       func() time.Time
}

// NewService creates a Service with the given secret key and token TTL
func NewService(secretKey string, tokenTTL time.Duration) *Service {
	return &Service{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
		issuer:    DefaultIssuer,
		now:       time.Now,
	}
}

// GenerateToken signs a token for subject carrying the given scopes
func (s *Service) GenerateToken(subject string, scopes ...string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidToken)
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"iss":   s.issuer,
		"scope": strings.Join(scopes, " "),
		"exp":   now.Add(s.tokenTTL).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken checks signature, issuer and expiry and returns the claims
func (s *Service) ValidateToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString,
		func(token *jwt.Token) (interface{}, error) {
			return s.secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	subject, err := mc.GetSubject()
	if err != nil || subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	claims := Claims{Subject: subject}
	if scope, ok := mc["scope"].(string); ok {
		claims.Scopes = strings.Fields(scope)
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

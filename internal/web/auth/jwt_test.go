package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-secret-key", time.Hour)

	tests := []struct {
		name    string
		subject string
		scopes  []string
	}{
		{name: "write scope", subject: "harvester", scopes: []string{ScopeRecordsWrite}},
		{name: "several scopes", subject: "curator", scopes: []string{ScopeRecordsWrite, ScopeRecordsDelete}},
		{name: "no scopes", subject: "reader"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := svc.GenerateToken(tt.subject, tt.scopes...)
			require.NoError(t, err)

			claims, err := svc.ValidateToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, claims.Subject)
			assert.Len(t, claims.Scopes, len(tt.scopes))
			for _, s := range tt.scopes {
				assert.True(t, claims.HasScope(s))
			}
			assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
		})
	}
}

func TestGenerateTokenRequiresSubject(t *testing.T) {
	_, err := NewService("secret", time.Hour).GenerateToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewService("test-secret-key", time.Hour)
	good, err := svc.GenerateToken("harvester", ScopeRecordsWrite)
	require.NoError(t, err)

	expiredToken, err := NewService("test-secret-key", -time.Minute).GenerateToken("harvester")
	require.NoError(t, err)

	otherKey, err := NewService("another-secret", time.Hour).GenerateToken("harvester")
	require.NoError(t, err)

	foreign := NewService("test-secret-key", time.Hour)
	foreign.issuer = "someone-else"
	foreignToken, err := foreign.GenerateToken("harvester")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "harvester",
		"iss": DefaultIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":   "not-a-token",
		"empty":     "",
		"tampered":  good + "x",
		"expired":   expiredToken,
		"wrong key": otherKey,
		"wrong iss": foreignToken,
		"alg none":  noneToken,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidateTokenMissingSubject(t *testing.T) {
	svc := NewService("test-secret-key", time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": DefaultIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret-key"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, err.Error(), "missing subject")
}

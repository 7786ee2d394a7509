package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("S3cure!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "S3cure!pass", hash)
	assert.True(t, CheckPassword(hash, "S3cure!pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestCheckStrength(t *testing.T) {
	tests := []struct {
		password string
		problems int
	}{
		{"Abcdef1!", 0},
		{"admin123!", 1},
		{"short", 4},
		{"ALLUPPER1!", 1},
		{"NoDigits!!", 1},
		{"NoSpecial12", 1},
	}
	for _, tt := range tests {
		err := CheckStrength(tt.password)
		if tt.problems == 0 {
			assert.NoError(t, err, tt.password)
			continue
		}
		var se *StrengthError
		require.True(t, errors.As(err, &se), tt.password)
		assert.Len(t, se.Problems, tt.problems, tt.password)
		assert.ErrorIs(t, err, ErrWeakPassword)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, exp, err := m.Issue(Principal{ID: 9, Email: "a@b.dev", Name: "A", Role: "admin"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(9), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "9", claims.Subject)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", time.Hour).Issue(Principal{ID: 1})
	require.NoError(t, err)
	_, err = NewTokenManager("two", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := m.Issue(Principal{ID: 1})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsUnsignedAlgorithm(t *testing.T) {
	claims := Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewTokenManager("secret", time.Hour).Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManagerDefaultTTL(t *testing.T) {
	assert.Equal(t, 12*time.Hour, NewTokenManager("s", 0).TTL())
}

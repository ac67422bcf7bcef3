package credential

import (
	"encoding/base64"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unrelated-secret"))
	require.NoError(t, err)
	return raw
}

func TestDecode(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("string role", func(t *testing.T) {
		raw := sign(t, jwt.MapClaims{"sub": "alice", "role": "ROLE_USER", "exp": exp.Unix(), "email": "a@x.io"})
		claims, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
		assert.Equal(t, "ROLE_USER", claims.Role)
		require.NotNil(t, claims.ExpiresAt)
		assert.True(t, exp.Equal(*claims.ExpiresAt))
		assert.Equal(t, "a@x.io", claims.Extra["email"])
		assert.NotContains(t, claims.Extra, "sub")
	})

	t.Run("bracketed role string", func(t *testing.T) {
		claims, err := Decode(sign(t, jwt.MapClaims{"sub": "root", "role": "[ROLE_ADMIN]"}))
		require.NoError(t, err)
		assert.Equal(t, []string{"ROLE_ADMIN"}, claims.Roles)
		assert.True(t, claims.HasRole("ADMIN"))
		assert.Nil(t, claims.ExpiresAt)
	})

	t.Run("role array", func(t *testing.T) {
		claims, err := Decode(sign(t, jwt.MapClaims{"sub": "root", "roles": []string{"ROLE_USER", "ROLE_ADMIN"}}))
		require.NoError(t, err)
		assert.Equal(t, "ROLE_USER", claims.Role)
		assert.True(t, claims.HasRole("role_admin"))
	})

	t.Run("numeric subject", func(t *testing.T) {
		claims, err := Decode(sign(t, jwt.MapClaims{"sub": 42, "role": "ROLE_USER", "exp": exp.Unix()}))
		require.NoError(t, err)
		assert.Equal(t, "42", claims.Subject)
		assert.Equal(t, "ROLE_USER", claims.Role)
		require.NotNil(t, claims.ExpiresAt)
	})

	t.Run("non-numeric exp means no expiry", func(t *testing.T) {
		claims, err := Decode(sign(t, jwt.MapClaims{"sub": "x", "exp": "tomorrow"}))
		require.NoError(t, err)
		assert.Nil(t, claims.ExpiresAt)
		assert.Equal(t, "tomorrow", claims.Extra["exp"])
	})

	t.Run("signature is not checked", func(t *testing.T) {
		raw := sign(t, jwt.MapClaims{"sub": "bob"}) + "tampered"
		claims, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, "bob", claims.Subject)
	})
}

func TestDecodeMalformed(t *testing.T) {
	notJSON := base64.RawURLEncoding.EncodeToString([]byte("not json"))
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	cases := map[string]string{
		"empty":           "",
		"one segment":     "abc",
		"two segments":    "abc.def",
		"payload garbage": header + "." + notJSON + ".sig",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(raw)
			assert.ErrorIs(t, err, ErrMalformedCredential)
		})
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	assert.True(t, IsExpired(Claims{ExpiresAt: &past}, now))
	assert.False(t, IsExpired(Claims{ExpiresAt: &future}, now))
	assert.False(t, IsExpired(Claims{ExpiresAt: &now}, now), "expiry equal to now is still valid")
	assert.False(t, IsExpired(Claims{}, now), "no expiry never expires")
}

func TestCheck(t *testing.T) {
	now := time.Now()

	_, err := Check(sign(t, jwt.MapClaims{"sub": "a", "exp": now.Add(-time.Minute).Unix()}), now)
	assert.ErrorIs(t, err, ErrExpired)

	claims, err := Check(sign(t, jwt.MapClaims{"sub": "a", "exp": now.Add(time.Hour).Unix()}), now)
	require.NoError(t, err)
	assert.Equal(t, "a", claims.Subject)

	_, err = Check("garbage", now)
	assert.ErrorIs(t, err, ErrMalformedCredential)
}

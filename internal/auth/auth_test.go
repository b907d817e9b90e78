package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-characters-long"

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	token, exp, err := m.Issue(42, "leo")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	id, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id.UserID)
	assert.Equal(t, "leo", id.Username)
	assert.True(t, id.Authenticated())
}

func TestTokenManager_RejectsBadTokens(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	good, _, err := m.Issue(1, "a")
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		id, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.False(t, id.Authenticated())
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("another-secret-at-least-32-characters", time.Hour)
		_, err := other.Parse(good)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokenManager(testSecret, time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, _, err := past.Issue(1, "a")
		require.NoError(t, err)
		_, err = m.Parse(old)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := jwt.MapClaims{
			"sub": "1", "iss": Issuer, "aud": "someone-else",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = m.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := jwt.MapClaims{
			"sub": "1", "iss": Issuer, "aud": Audience,
			"exp": time.Now().Add(time.Hour).Unix(),
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestIssueWithoutSecret(t *testing.T) {
	_, _, err := NewTokenManager("", 0).Issue(1, "a")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse 1")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse 1", hash)
	assert.True(t, CheckPassword(hash, "correct horse 1"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestAnonymous(t *testing.T) {
	assert.False(t, Anonymous.Authenticated())
}

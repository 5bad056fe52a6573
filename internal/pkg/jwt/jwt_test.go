package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	s := New("secret", time.Hour)
	tok, err := s.GenerateToken("sid-1", "tmp-1")
	require.NoError(t, err)

	claims, err := s.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.Equal(t, "tmp-1", claims.TempID)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	tok, err := New("secret", time.Hour).GenerateToken("sid-1", "tmp-1")
	require.NoError(t, err)

	_, err = New("other", time.Hour).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	s := New("secret", time.Minute)
	issued := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }
	tok, err := s.GenerateToken("sid-1", "tmp-1")
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = s.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := New("secret", time.Hour).ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

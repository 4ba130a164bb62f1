package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordProducesDistinctSaltedDigests(t *testing.T) {
	auth := NewAuthService("test-secret")

	h1, err := auth.HashPassword("s3cret-password")
	require.NoError(t, err)
	h2, err := auth.HashPassword("s3cret-password")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret-password", h1)
	assert.NotEqual(t, h1, h2, "salts must be random per hash")
}

func TestCheckPassword(t *testing.T) {
	auth := NewAuthService("test-secret")
	digest, err := auth.HashPassword("correct horse")
	require.NoError(t, err)

	tests := []struct {
		name    string
		plain   string
		digest  string
		want    bool
		wantErr error
	}{
		{name: "match", plain: "correct horse", digest: digest, want: true},
		{name: "mismatch is not an error", plain: "wrong horse", digest: digest, want: false},
		{name: "malformed digest", plain: "correct horse", digest: "not-a-bcrypt-digest", want: false, wantErr: ErrInvalidDigest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := auth.CheckPassword(tt.plain, tt.digest)
			assert.Equal(t, tt.want, ok)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIssueAndParseToken(t *testing.T) {
	auth := NewAuthService("test-secret")

	token, err := auth.IssueToken(42)
	require.NoError(t, err)

	userID, err := auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestParseTokenExpired(t *testing.T) {
	auth := NewAuthServiceWithTTL("test-secret", -time.Minute)

	token, err := auth.IssueToken(42)
	require.NoError(t, err)

	_, err = auth.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := NewAuthService("secret-a").IssueToken(42)
	require.NoError(t, err)

	_, err = NewAuthService("secret-b").ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := NewAuthService("test-secret").ParseToken("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

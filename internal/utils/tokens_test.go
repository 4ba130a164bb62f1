package utils

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpaqueToken(t *testing.T) {
	tok, err := NewOpaqueToken(32)
	require.NoError(t, err)
	assert.Len(t, tok, 64) // 32 bytes hex-encoded

	_, err = hex.DecodeString(tok)
	assert.NoError(t, err, "token must be valid hex")
}

func TestNewOpaqueTokenDefaultsTo256Bits(t *testing.T) {
	tok, err := NewOpaqueToken(0)
	require.NoError(t, err)
	assert.Len(t, tok, 64)
}

func TestNewOpaqueTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewOpaqueToken(32)
		require.NoError(t, err)
		assert.False(t, seen[tok], "token repeated")
		seen[tok] = true
	}
}

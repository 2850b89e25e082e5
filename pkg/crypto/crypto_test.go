package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Sekret123", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "Sekret123", hash)

	assert.True(t, CheckPassword("Sekret123", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestHashPasswordClampsInvalidCost(t *testing.T) {
	hash, err := HashPassword("Sekret123", 99)
	require.NoError(t, err)
	assert.True(t, CheckPassword("Sekret123", hash))
}

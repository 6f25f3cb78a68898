package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLicenseKeyFormat(t *testing.T) {
	key, err := GenerateLicenseKey()
	require.NoError(t, err)

	groups := strings.Split(key, "-")
	require.Len(t, groups, 5)
	for _, g := range groups {
		assert.Len(t, g, 4)
		for _, c := range g {
			assert.Contains(t, "0123456789ABCDEF", string(c))
		}
	}
}

func TestGenerateLicenseKeyUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateLicenseKey()
		require.NoError(t, err)
		assert.False(t, seen[key], "duplicate key: %s", key)
		seen[key] = true
	}
}

func TestGenerateID(t *testing.T) {
	id, err := GenerateID("lic")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "lic-"))
	assert.Len(t, id, 20)

	bare, err := GenerateID("")
	require.NoError(t, err)
	assert.Len(t, bare, 16)
}

func TestCheckAdminSecretPlain(t *testing.T) {
	assert.True(t, CheckAdminSecret("s3cret", "s3cret", false))
	assert.False(t, CheckAdminSecret("s3cret", "wrong", false))
	assert.False(t, CheckAdminSecret("s3cret", "", false))
}

func TestCheckAdminSecretHashed(t *testing.T) {
	hash, err := HashAdminSecret("s3cret")
	require.NoError(t, err)

	assert.True(t, CheckAdminSecret(hash, "s3cret", true))
	assert.False(t, CheckAdminSecret(hash, "wrong", true))
	assert.False(t, CheckAdminSecret(hash, "", true))
}

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey("prod")
	require.NoError(t, err)

	assert.Regexp(t, `^aegis-admin-prod-[a-z0-9]{32}$`, key)

	key2, _ := GenerateKey("prod")
	assert.NotEqual(t, key, key2, "two generated keys should differ")
}

func TestHashKey(t *testing.T) {
	key := "aegis-admin-prod-abcdefghijklmnopqrstuvwxyz012345"
	hash := HashKey(key)

	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashKey(key))
	assert.NotEqual(t, hash, HashKey("aegis-admin-prod-different"))
}

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"aegis-admin-prod-abcdefghijklmnopqrstuvwxyz012345", "aegis-admin-prod-abcdefgh"},
		{"aegis-admin-dev-12345678901234567890123456789012", "aegis-admin-dev-12345678"},
		{"sk-1234567890abcdefghijkl", "sk-1234567890abc"},
		{"short", "short"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, KeyPrefix(tt.key), tt.key)
	}
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		have, want string
		ok         bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleViewer, true},
		{RoleViewer, RoleViewer, true},
		{RoleViewer, RoleAdmin, false},
		{"", RoleViewer, false},
		{RoleAdmin, "superuser", false},
	}
	for _, tt := range tests {
		info := &AuthInfo{Role: tt.have}
		assert.Equal(t, tt.ok, info.HasRole(tt.want), "role %q wants %q", tt.have, tt.want)
	}
	assert.True(t, ValidRole(RoleViewer))
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole("root"))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
		hours   float64
	}{
		{"365d", false, 365 * 24},
		{"30d", false, 30 * 24},
		{"24h", false, 24},
		{"1h", false, 1},
		{"", true, 0},
	}
	for _, tt := range tests {
		dur, err := ParseDuration(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		if assert.NoError(t, err, tt.input) {
			assert.Equal(t, tt.hours, dur.Hours(), tt.input)
		}
	}
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
	assert.False(t, CheckPasswordHash("correct horse battery staple", "not-a-hash"))
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"ada@example.com",
		"first.last+tag@sub.example.co",
		"UPPER_case%ok@example.org",
	}
	for _, email := range valid {
		assert.Truef(t, IsValidEmail(email), "%s should be valid", email)
	}

	invalid := []string{
		"",
		"plain",
		"@example.com",
		"user@",
		"user@example",
		"user name@example.com",
	}
	for _, email := range invalid {
		assert.Falsef(t, IsValidEmail(email), "%s should be invalid", email)
	}
}

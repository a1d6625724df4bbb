package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBaseURL(t *testing.T) {
	u, err := ParseBaseURL("https://api.example.com/v1/")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1", u.String())

	assert.True(t, IsValidBaseURL("http://localhost:9000"))
	assert.False(t, IsValidBaseURL("ftp://example.com"))
	assert.False(t, IsValidBaseURL("https://"))
	assert.False(t, IsValidBaseURL("not a url"))
}

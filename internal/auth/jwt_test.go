package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestParseUserID_RoundTrip(t *testing.T) {
	token, err := NewToken("user-42", testSecret, time.Hour)
	require.NoError(t, err)

	userID, err := ParseUserID(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestParseUserID_WrongSecret(t *testing.T) {
	token, err := NewToken("user-42", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseUserID(token, "other-secret")
	assert.Error(t, err)
}

func TestParseUserID_Expired(t *testing.T) {
	token, err := NewToken("user-42", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseUserID(token, testSecret)
	assert.Error(t, err)
}

func TestParseUserID_Garbage(t *testing.T) {
	_, err := ParseUserID("not-a-token", testSecret)
	assert.Error(t, err)
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", ExtractBearerToken("Bearer abc"))
	assert.Equal(t, "", ExtractBearerToken("abc"))
	assert.Equal(t, "", ExtractBearerToken(""))
}

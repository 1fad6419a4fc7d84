package service

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateOTPRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}
}

func TestNewSessionIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewSessionID()
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
}

func TestNewAccessTokenCarriesUserID(t *testing.T) {
	token := NewAccessToken("user-42")
	require.True(t, strings.HasPrefix(token, "user-42_"))
	require.NotEqual(t, token, NewAccessToken("user-42"))
}

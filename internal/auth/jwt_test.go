package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueAndVerify(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.Issue("user-123")
	require.NoError(t, err)

	userID, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", userID)
}

func TestManager_Rejects(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	valid, err := m.Issue("user-123")
	require.NoError(t, err)

	expired := NewManager("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue("user-123")
	require.NoError(t, err)

	otherSecret, err := NewManager("other-secret", time.Hour).Issue("user-123")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-123",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expiredToken},
		{"wrong secret", otherSecret},
		{"alg none", unsigned},
		{"no expiry", noExpiry},
		{"malformed", "not.a.token"},
		{"truncated", valid[:len(valid)-4]},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			require.Error(t, err)
		})
	}
}

func TestManager_LegacyUserIDClaim(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "legacy-user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	userID, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "legacy-user", userID)
}

func TestManager_MissingSubject(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrMissingSubject)
}

package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/translatar/gateway/adapters/memory"
)

type fakeVerifier struct {
	identity *GoogleIdentity
	err      error
}

func (f *fakeVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	return f.identity, f.err
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(userID string) (string, error) {
	return "token-for-" + userID, nil
}

func TestAuthService_LoginWithGoogle(t *testing.T) {
	users := memory.NewUserRepository()
	verifier := &fakeVerifier{identity: &GoogleIdentity{Subject: "google-1", Email: "a@example.com"}}
	svc := NewAuthService(verifier, fakeIssuer{}, users, zaptest.NewLogger(t))

	token, user, err := svc.LoginWithGoogle(context.Background(), "id-token")
	require.NoError(t, err)
	require.Equal(t, "token-for-"+user.ID, token)
	require.Equal(t, "a@example.com", user.Email)

	_, again, err := svc.LoginWithGoogle(context.Background(), "id-token")
	require.NoError(t, err)
	require.Equal(t, user.ID, again.ID)
}

func TestAuthService_RejectsBadToken(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("token is expired")}
	svc := NewAuthService(verifier, fakeIssuer{}, memory.NewUserRepository(), zaptest.NewLogger(t))

	_, _, err := svc.LoginWithGoogle(context.Background(), "bad")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
)

// ErrInvalidCredentials is returned when an identity token does not verify
var ErrInvalidCredentials = errors.New("invalid credentials")

// GoogleIdentity is the verified content of a Google ID token
type GoogleIdentity struct {
	Subject string
	Email   string
}

// IdentityVerifier verifies externally issued identity tokens
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

// TokenIssuer issues application access tokens
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AuthService exchanges Google ID tokens for application tokens
type AuthService struct {
	verifier IdentityVerifier
	issuer   TokenIssuer
	users    repositories.UserRepository
	logger   *zap.Logger
}

func NewAuthService(verifier IdentityVerifier, issuer TokenIssuer, users repositories.UserRepository, logger *zap.Logger) *AuthService {
	return &AuthService{
		verifier: verifier,
		issuer:   issuer,
		users:    users,
		logger:   logger,
	}
}

// LoginWithGoogle verifies idToken, creates the user on first sign-in and
// returns an access token whose subject is the user id
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (string, *entities.User, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.logger.Info("Google token rejected", zap.Error(err))
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	user, err := s.users.GetOrCreateByGoogleID(ctx, identity.Subject, identity.Email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.logger.Info("User logged in", zap.String("userID", user.ID))
	return token, user, nil
}

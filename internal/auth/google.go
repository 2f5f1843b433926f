package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/translatar/gateway/usecase"
)

// DefaultGoogleJWKSURL is where Google publishes its ID token signing keys
const DefaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type googleClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GoogleVerifier verifies Google ID tokens locally against the JWKS cache
type GoogleVerifier struct {
	keys     *JWKSCache
	clientID string
	parser   *jwt.Parser
}

var _ usecase.IdentityVerifier = (*GoogleVerifier)(nil)

func NewGoogleVerifier(keys *JWKSCache, clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		keys:     keys,
		clientID: clientID,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithAudience(clientID),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify implements usecase.IdentityVerifier
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*usecase.GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, errors.New("google client id is not configured")
	}

	claims := &googleClaims{}
	if _, err := v.parser.ParseWithClaims(idToken, claims, v.keys.Keyfunc(ctx)); err != nil {
		return nil, err
	}

	if !validIssuer(claims.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", jwt.ErrTokenInvalidIssuer, claims.Issuer)
	}
	if claims.Email == "" {
		return nil, errors.New("token missing email claim")
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	return &usecase.GoogleIdentity{Subject: claims.Subject, Email: claims.Email}, nil
}

func validIssuer(iss string) bool {
	for _, allowed := range googleIssuers {
		if iss == allowed {
			return true
		}
	}
	return false
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	jwksFetchTimeout = 10 * time.Second
	// unknownKIDRefreshInterval bounds refetches triggered by unknown key ids
	unknownKIDRefreshInterval = time.Minute
)

// ErrKeyNotFound is returned when no published key matches a key id
var ErrKeyNotFound = errors.New("public key not found")

// JWKSCache holds the keys published at a JWKS endpoint. The set is
// refetched in the background every ttl, and at most once per
// unknownKIDRefreshInterval when a token names a key id it does not hold.
type JWKSCache struct {
	url     string
	storage jwkset.Storage
	keyfunc keyfunc.Keyfunc
	cancel  context.CancelFunc
	logger  *zap.Logger
}

// NewJWKSCache fetches the key set once and starts the refresh loop, which
// runs until ctx is done or Close is called. An unreachable endpoint is
// logged rather than returned so the server can start without it.
func NewJWKSCache(ctx context.Context, url string, ttl time.Duration, httpClient *http.Client, logger *zap.Logger) (*JWKSCache, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: jwksFetchTimeout}
	}
	ctx, cancel := context.WithCancel(ctx)

	remote, err := jwkset.NewStorageFromHTTP(url, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		Ctx:                       ctx,
		HTTPTimeout:               jwksFetchTimeout,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           ttl,
		RefreshErrorHandler: func(ctx context.Context, err error) {
			logger.Warn("Failed to refresh JWKS", zap.String("url", url), zap.Error(err))
		},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create JWKS storage: %w", err)
	}

	storage, err := jwkset.NewHTTPClient(jwkset.HTTPClientOptions{
		HTTPURLs:          map[string]jwkset.Storage{url: remote},
		RefreshUnknownKID: rate.NewLimiter(rate.Every(unknownKIDRefreshInterval), 1),
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create JWKS keyfunc: %w", err)
	}

	logger.Info("JWKS cache started", zap.String("url", url), zap.Duration("ttl", ttl))
	return &JWKSCache{
		url:     url,
		storage: storage,
		keyfunc: k,
		cancel:  cancel,
		logger:  logger,
	}, nil
}

// Keyfunc resolves the signing key of a token by its kid header
func (c *JWKSCache) Keyfunc(ctx context.Context) jwt.Keyfunc {
	return c.keyfunc.KeyfuncCtx(ctx)
}

// Key returns the public key for kid
func (c *JWKSCache) Key(ctx context.Context, kid string) (any, error) {
	jwk, err := c.storage.KeyRead(ctx, kid)
	if err != nil {
		if errors.Is(err, jwkset.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
		}
		return nil, fmt.Errorf("failed to read key %s from JWKS: %w", kid, err)
	}
	return jwk.Key(), nil
}

// Close stops the background refresh
func (c *JWKSCache) Close() {
	c.cancel()
}

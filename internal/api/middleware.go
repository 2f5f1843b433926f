package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const userIDKey = "userID"

// BearerAuth rejects requests without a valid application token in the
// Authorization header and stores the token's user id in the context.
func BearerAuth(tokens TokenVerifier, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "Bearer token is required in Authorization header",
				})
			}

			userID, err := tokens.Verify(token)
			if err != nil {
				logger.Info("Request rejected: invalid token",
					zap.String("path", c.Path()),
					zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired token",
				})
			}

			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func userIDFrom(c echo.Context) string {
	userID, _ := c.Get(userIDKey).(string)
	return userID
}

package middleware

import (
	stdErrors "errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/errors"
	"github.com/johnquangdev/playcoach/pkg/jwt"
)

// ServiceContextKey is the echo context key holding the calling service's claims
const ServiceContextKey = "service_claims"

// ServiceTokenValidator is satisfied by *jwt.Manager
type ServiceTokenValidator interface {
	ValidateServiceToken(tokenString, requiredScope string) (*jwt.Claims, error)
}

// ServiceAuth returns an Echo middleware that requires a bearer service token
// granting scope, and stores the parsed claims under ServiceContextKey
func ServiceAuth(validator ServiceTokenValidator, scope string, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearer(c.Request())
			if token == "" {
				return reject(c, errors.ErrUnauthenticated())
			}

			claims, err := validator.ValidateServiceToken(token, scope)
			if err != nil {
				if logger != nil {
					logger.Warn("🔒 Rejected service token",
						zap.String("path", c.Path()),
						zap.Error(err),
					)
				}
				switch {
				case stdErrors.Is(err, jwt.ErrInsufficientScope):
					return reject(c, errors.ErrPermissionDenied(scope))
				case stdErrors.Is(err, jwt.ErrTokenExpired):
					return reject(c, errors.ErrTokenExpired())
				default:
					return reject(c, errors.ErrInvalidToken(err))
				}
			}

			c.Set(ServiceContextKey, claims)
			return next(c)
		}
	}
}

// GetServiceClaims returns the claims ServiceAuth stored on the context
func GetServiceClaims(c echo.Context) (*jwt.Claims, bool) {
	claims, ok := c.Get(ServiceContextKey).(*jwt.Claims)
	return claims, ok
}

// reject writes appErr in the same envelope the handlers use
func reject(c echo.Context, appErr errors.AppError) error {
	return c.JSON(appErr.HTTPCode, echo.Map{
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
	})
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

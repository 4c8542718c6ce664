package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/authz"
	"projecthub/internal/identity"
	"projecthub/internal/model"
	"projecthub/pkg/logger"
	"projecthub/prometheus"
)

// Context keys set by Auth for downstream handlers.
const (
	UserKey   = "auth_user"
	TenantKey = "auth_tenant"
	CallerKey = "auth_caller"
)

// Auth validates the bearer token and resolves the caller's identity
// fresh on every request. On success the user, tenant and caller are
// stored in the echo context.
func Auth(resolver *identity.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false,
					"message": "missing authorization token",
					"code":    apperr.CodeUnauthenticated,
				})
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false,
					"message": "invalid authorization format, expected Bearer token",
					"code":    apperr.CodeUnauthenticated,
				})
			}

			user, tenant, err := resolver.Resolve(parts[1])
			if err != nil {
				e := apperr.From(err)
				log.Warn("authentication failed",
					zap.String("code", e.Code),
					zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(e.HTTPStatus(), echo.Map{
					"success": false,
					"message": e.Message,
					"code":    e.Code,
				})
			}

			c.Set(UserKey, user)
			c.Set(TenantKey, tenant)
			c.Set(CallerKey, authz.CallerFor(user))

			return next(c)
		}
	}
}

// CallerFrom returns the authenticated caller stored by Auth.
func CallerFrom(c echo.Context) (authz.Caller, bool) {
	caller, ok := c.Get(CallerKey).(authz.Caller)
	return caller, ok
}

// UserFrom returns the authenticated user stored by Auth.
func UserFrom(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(UserKey).(*model.User)
	return user, ok
}

// TenantFrom returns the session tenant stored by Auth; nil for
// super-admin sessions.
func TenantFrom(c echo.Context) *model.Tenant {
	tenant, _ := c.Get(TenantKey).(*model.Tenant)
	return tenant
}

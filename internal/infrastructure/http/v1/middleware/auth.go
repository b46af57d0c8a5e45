package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/session"
)

// HeaderTenantID optionally pins the request to a tenant. When present
// it must match the tenant carried by the token.
const HeaderTenantID = "X-Tenant-ID"

// JWTValidator interface for token validation.
type JWTValidator interface {
	ValidateToken(tokenString string) (*session.Session, error)
}

// Auth middleware validates JWT tokens and populates the request session.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		sess, err := validator.ValidateToken(parts[1])
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		// Enforce tenant match: X-Tenant-ID, when sent, must match the token tenant.
		if headerTenant := c.GetHeader(HeaderTenantID); headerTenant != "" && headerTenant != sess.TenantID {
			_ = c.Error(
				apperror.NewForbidden("tenant mismatch").
					WithDetail("header_tenant_id", headerTenant).
					WithDetail("token_tenant_id", sess.TenantID),
			)
			c.Abort()
			return
		}

		ctx := session.WithSession(c.Request.Context(), sess)
		c.Request = c.Request.WithContext(ctx)

		// Store in gin context for easy access
		c.Set("user_id", sess.UserID)
		c.Set("tenant_id", sess.TenantID)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}

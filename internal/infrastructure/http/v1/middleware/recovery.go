// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"fluxo/internal/core/apperror"
	"fluxo/pkg/logger"
)

// Recovery turns panics into the standard JSON error response. A panic
// unwinds past ErrorHandler's rendering step, so the response is
// written here, including the idempotency failure record.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"panic", rec,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)

				appErr := apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
					WithDetail("request_id", c.GetString("request_id"))
				body := gin.H{
					"code":    appErr.Code,
					"message": appErr.Message,
					"details": appErr.Details,
				}
				failIdempotency(c, appErr.HTTPStatus, body)
				c.AbortWithStatusJSON(appErr.HTTPStatus, body)
			}
		}()
		c.Next()
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/infrastructure/logger"
	"github.com/partdb/backend/internal/interfaces/http/dto"
)

// PermissionChecker decides whether the actor of a request context may do
// perm.op. Denials are returned as FORBIDDEN domain errors.
type PermissionChecker interface {
	Require(ctx context.Context, path, perm, op string) error
}

// RequirePermission creates middleware that requires perm.op. Anonymous
// requests that are denied get 401 so clients know to log in.
func RequirePermission(checker PermissionChecker, perm, op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := checker.Require(c.Request.Context(), c.Request.URL.Path, perm, op)
		if err == nil {
			c.Next()
			return
		}

		var de *shared.DomainError
		if !errors.As(err, &de) {
			logger.L(c.Request.Context()).Error("Permission check failed",
				zap.String("permission", perm+"."+op), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "An internal error occurred", GetRequestID(c)))
			return
		}

		if _, ok := GetJWTUserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithHelp(dto.ErrCodeUnauthorized, de.Message, GetRequestID(c), "/api/v1/auth/login"))
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, de.Message, GetRequestID(c)))
	}
}

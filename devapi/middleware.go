package devapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/layer-3/dicer/core"
	"go.uber.org/zap"
)

// SessionExpiredMessage is the error message of a rejected access token.
// The client recognizes it and refreshes the session.
const SessionExpiredMessage = "session expired, please login again"

const addressKey = "userAddress"

// AuthMiddleware creates middleware that validates access tokens
func AuthMiddleware(authService *AuthService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := core.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if !ok {
			fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
			return
		}

		session, err := authService.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, core.ErrTokenExpired) {
				log.Debug("access token rejected", zap.Error(err))
			}
			fail(c, http.StatusUnauthorized, "UNAUTHORIZED", SessionExpiredMessage)
			return
		}

		c.Set(addressKey, session.Address)
		c.Next()
	}
}

// RequestLogger logs every request with its X-Request-ID, generating one when absent
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

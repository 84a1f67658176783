// Package devapi is a stand-in backend for local development and tests.
// It serves wallet login with rotating refresh cookies and an in-memory dice
// game, all in the {code, data, message} envelope the client expects.
package devapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/dicer/logger"
	"go.uber.org/zap"
)

// NewRouter sets up the Gin router
func NewRouter(authService *AuthService, game *Game, log *zap.Logger) *gin.Engine {
	log = logger.OrNop(log)

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))
	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "NOT_FOUND", "not found")
	})

	handlers := NewHandlers(authService, game, log)

	// Auth routes
	auth := router.Group("/api/auth")
	{
		auth.POST("/wallet-login", handlers.WalletLogin)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService, log))
	{
		api.GET("/auth/authorize", handlers.Authorize)
		api.GET("/user/info", handlers.UserInfo)
		api.POST("/dice/roll", handlers.RollDice)
		api.GET("/leaderboard", handlers.Leaderboard)
		api.POST("/attendance/check", handlers.CheckAttendance)
		api.GET("/missions", handlers.Missions)
		api.POST("/pet/diagnosis", handlers.DiagnosePet)
	}

	return router
}

package devapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/dicer/core"
	"go.uber.org/zap"

	dicerhttp "github.com/layer-3/dicer/transport/http"
)

const (
	refreshCookie  = "refreshToken"
	maxUploadBytes = 5 << 20
)

// Handlers contains the HTTP handlers of the dev API
type Handlers struct {
	authService *AuthService
	game        *Game
	log         *zap.Logger
}

// NewHandlers creates new handlers
func NewHandlers(authService *AuthService, game *Game, log *zap.Logger) *Handlers {
	return &Handlers{
		authService: authService,
		game:        game,
		log:         log,
	}
}

func respond(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": core.CodeOK, "data": data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": message})
}

func address(c *gin.Context) string {
	return c.GetString(addressKey)
}

// issue hands the tokens to the client: the access token in the Authorization
// header, the refresh token in an HTTP-only cookie
func (h *Handlers) issue(c *gin.Context, accessToken, refreshToken string) {
	c.Header("Authorization", "Bearer "+accessToken)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, refreshToken, int(h.authService.RefreshTTL().Seconds()), "/", "", false, true)
}

// WalletLogin handles the wallet login request
func (h *Handlers) WalletLogin(c *gin.Context) {
	var req dicerhttp.WalletLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.WalletAddress == "" {
		fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request")
		return
	}

	accessToken, refreshToken, err := h.authService.Login(c.Request.Context(), req.WalletAddress)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			fail(c, http.StatusBadRequest, "INVALID_ADDRESS", "invalid wallet address")
			return
		}
		h.log.Error("wallet login failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "INTERNAL", "authentication failed")
		return
	}

	if err := h.game.Join(req.WalletAddress, req.ReferralCode); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_REFERRAL", err.Error())
		return
	}

	h.issue(c, accessToken, refreshToken)
	respond(c, gin.H{"walletAddress": req.WalletAddress})
}

// Refresh rotates the refresh cookie and issues a new access token
func (h *Handlers) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookie)
	if err != nil || refreshToken == "" {
		fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "refresh token missing")
		return
	}

	accessToken, newRefreshToken, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		status, message := http.StatusInternalServerError, "failed to refresh tokens"
		switch {
		case errors.Is(err, core.ErrInvalidToken):
			status, message = http.StatusUnauthorized, "invalid refresh token"
		case errors.Is(err, core.ErrTokenExpired):
			status, message = http.StatusUnauthorized, "refresh token expired"
		case errors.Is(err, core.ErrTokenInvalidated):
			status, message = http.StatusUnauthorized, "refresh token has been invalidated"
		default:
			h.log.Error("token refresh failed", zap.Error(err))
		}
		fail(c, status, "UNAUTHORIZED", message)
		return
	}

	h.issue(c, accessToken, newRefreshToken)
	respond(c, nil)
}

// Logout revokes the refresh cookie. It succeeds even without a valid cookie.
func (h *Handlers) Logout(c *gin.Context) {
	if refreshToken, err := c.Cookie(refreshCookie); err == nil && refreshToken != "" {
		if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil && !errors.Is(err, core.ErrInvalidToken) {
			h.log.Warn("logout failed", zap.Error(err))
		}
	}

	c.SetCookie(refreshCookie, "", -1, "/", "", false, true)
	respond(c, nil)
}

// Authorize reports the address of a valid access token
func (h *Handlers) Authorize(c *gin.Context) {
	respond(c, gin.H{
		"authorized":    true,
		"walletAddress": address(c),
	})
}

// UserInfo returns the profile of the caller
func (h *Handlers) UserInfo(c *gin.Context) {
	respond(c, h.game.UserInfo(address(c)))
}

// RollDice spends one roll of the caller
func (h *Handlers) RollDice(c *gin.Context) {
	roll, err := h.game.Roll(address(c))
	if err != nil {
		fail(c, http.StatusBadRequest, "NO_ROLLS_LEFT", err.Error())
		return
	}
	respond(c, roll)
}

// Leaderboard returns one page of the ranking
func (h *Handlers) Leaderboard(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	respond(c, h.game.Leaderboard(page, size))
}

// CheckAttendance records the daily check-in of the caller
func (h *Handlers) CheckAttendance(c *gin.Context) {
	att, err := h.game.CheckIn(address(c))
	if err != nil {
		fail(c, http.StatusConflict, "ALREADY_CHECKED_IN", err.Error())
		return
	}
	respond(c, att)
}

// Missions lists the missions of the caller
func (h *Handlers) Missions(c *gin.Context) {
	respond(c, h.game.Missions(address(c)))
}

// DiagnosePet accepts a multipart pet photo upload
func (h *Handlers) DiagnosePet(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	file, err := c.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, "BAD_REQUEST", "image is required")
		return
	}
	respond(c, h.game.Diagnose(file.Filename, file.Size, c.PostForm("note")))
}

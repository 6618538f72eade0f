package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-homelink/homelink/internal/services"
)

// TokenHandler serves the token endpoint the voice-assistant platform calls
// to exchange an authorization code or refresh token for an access token.
type TokenHandler struct {
	linkService *services.LinkService
}

func NewTokenHandler(ls *services.LinkService) *TokenHandler {
	return &TokenHandler{linkService: ls}
}

// AccessToken handles POST /access-token. The platform sends either a
// form-encoded or a JSON body carrying code or refresh_token (mutually
// exclusive; refresh_token wins when both are present).
func (h *TokenHandler) AccessToken(c *gin.Context) {
	var req services.GrantRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing code or refresh_token",
		})
		return
	}

	pair, err := h.linkService.Exchange(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingGrant):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Missing code or refresh_token",
			})
		case errors.Is(err, services.ErrInvalidGrant):
			message := "Invalid authorization code"
			if req.RefreshToken != "" {
				message = "Invalid or expired refresh token"
			}
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": message,
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service temporarily unavailable",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"token_type":    pair.TokenType,
		"expires_in":    pair.ExpiresIn,
		"refresh_token": pair.RefreshToken,
	})
}

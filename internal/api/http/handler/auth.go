package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/akellavk/openvpn-dashboard/internal/accounts"
	"github.com/akellavk/openvpn-dashboard/internal/api/http/dto"
	"github.com/akellavk/openvpn-dashboard/internal/auth"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	accounts  *accounts.Service
	jwtConfig auth.Config
}

func NewAuthHandler(accounts *accounts.Service, jwtConfig auth.Config) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		jwtConfig: jwtConfig,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		slog.Error("Failed to authenticate", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	token, err := auth.GenerateToken(h.jwtConfig, acc.ID.String(), acc.Username, acc.Role)
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	maxAge := int(h.jwtConfig.TTL.Seconds())
	c.SetCookie(auth.CookieName, token, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, dto.LoginResponse{Token: token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rollcall/internal/apperr"
	"rollcall/internal/auth"
	"rollcall/internal/metrics"
)

// Register creates a teacher account.
func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	if _, err := h.accounts.CreateUser(c.Request.Context(), req.Username, req.Password); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse{Message: "Teacher registered successfully"})
}

// Login exchanges credentials for tokens. The body shape depends on the
// configured strategy.
func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	set, err := h.tokens.Issue(c.Request.Context(), auth.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			metrics.Logins.WithLabelValues("invalid_credentials").Inc()
			h.log.Info("login rejected", zap.String("username", req.Username))
		} else {
			metrics.Logins.WithLabelValues("error").Inc()
		}
		h.writeError(c, err)
		return
	}
	metrics.Logins.WithLabelValues("ok").Inc()

	if set.Token != "" {
		c.JSON(http.StatusOK, loginResponse{Message: "Login successful", Token: set.Token})
		return
	}
	c.JSON(http.StatusOK, tokenPairResponse{AccessToken: set.AccessToken, RefreshToken: set.RefreshToken})
}

// RefreshToken trades a refresh token for a new access token.
func (h *Handler) RefreshToken(c *gin.Context) {
	r, ok := h.tokens.(auth.Refresher)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	set, err := r.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, accessTokenResponse{AccessToken: set.AccessToken})
}

// Logout revokes the caller's session where the strategy keeps one.
func (h *Handler) Logout(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		return
	}
	if err := h.tokens.Revoke(c.Request.Context(), p); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Logout successful"})
}

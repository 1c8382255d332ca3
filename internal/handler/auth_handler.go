package handler

import (
	"context"
	"net/http"

	"github.com/fintrack/fintrack/shared/cqrs"
	"github.com/fintrack/fintrack/shared/middleware"
	"github.com/gin-gonic/gin"
)

// AuthQuerier defines the read-side operations used by AuthHandler.
type AuthQuerier interface {
	Login(context.Context, cqrs.LoginCommand) (string, error)
}

// AuthCommander defines the write-side operations used by AuthHandler.
type AuthCommander interface {
	Logout(context.Context, cqrs.LogoutCommand) error
}

type AuthHandler struct {
	commands AuthCommander
	queries  AuthQuerier
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
}

func NewAuthHandler(commands AuthCommander, queries AuthQuerier) *AuthHandler {
	return &AuthHandler{commands: commands, queries: queries}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	token, err := h.queries.Login(c.Request.Context(), cqrs.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{AccessToken: token})
}

// Logout revokes the token that authenticated the request.
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenID, expiresAt, ok := middleware.GetToken(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Missing claim: jti")
		return
	}

	if err := h.commands.Logout(c.Request.Context(), cqrs.LogoutCommand{
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
	}); err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

package handler

import (
	"context"
	"net/http"

	"github.com/fintrack/fintrack/shared/cqrs"
	"github.com/fintrack/fintrack/shared/middleware"
	"github.com/fintrack/fintrack/shared/models"
	"github.com/gin-gonic/gin"
)

// UserCommander defines the write-side operations used by UserHandler.
type UserCommander interface {
	RegisterUser(context.Context, cqrs.RegisterUserCommand) (*models.User, error)
}

type UserHandler struct {
	commands UserCommander
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=80"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,max=72"`
}

func NewUserHandler(commands UserCommander) *UserHandler {
	return &UserHandler{commands: commands}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	if _, err := h.commands.RegisterUser(c.Request.Context(), cqrs.RegisterUserCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully"})
}

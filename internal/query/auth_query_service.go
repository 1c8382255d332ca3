package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/fintrack/fintrack/internal/repository"
	"github.com/fintrack/fintrack/shared/apperr"
	"github.com/fintrack/fintrack/shared/cqrs"
	"github.com/fintrack/fintrack/shared/models"
	"github.com/fintrack/fintrack/shared/utils"
)

const msgInvalidCredentials = "Invalid credentials"

type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type TokenIssuer interface {
	Issue(email string) (string, error)
}

// AuthQueryService handles login. It reads users and mints tokens without
// mutating application state.
type AuthQueryService struct {
	users  UserFinder
	tokens TokenIssuer
}

func NewAuthQueryService(users UserFinder, tokens TokenIssuer) *AuthQueryService {
	return &AuthQueryService{users: users, tokens: tokens}
}

// Login returns an access token for valid credentials. Unknown emails and
// wrong passwords fail with the same message.
func (s *AuthQueryService) Login(ctx context.Context, cmd cqrs.LoginCommand) (string, error) {
	user, err := s.users.FindByEmail(ctx, cmd.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", apperr.NewAuthentication(msgInvalidCredentials)
	}
	if err != nil {
		return "", err
	}
	if !utils.CheckPassword(cmd.Password, user.PasswordHash) {
		return "", apperr.NewAuthentication(msgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

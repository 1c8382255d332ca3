package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fintrack/fintrack/internal/repository"
	"github.com/fintrack/fintrack/shared/apperr"
	"github.com/fintrack/fintrack/shared/cqrs"
	"github.com/fintrack/fintrack/shared/events"
	"github.com/fintrack/fintrack/shared/models"
	"github.com/fintrack/fintrack/shared/utils"
)

const msgUserExists = "User with that username or email already exists"

type UserStore interface {
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// UserCommandService registers users in the identity store.
type UserCommandService struct {
	users     UserStore
	publisher EventPublisher
}

func NewUserCommandService(users UserStore, publisher EventPublisher) *UserCommandService {
	return &UserCommandService{users: users, publisher: publisher}
}

// RegisterUser creates a user unless the username or email is already taken.
// The UNIQUE constraints settle races between concurrent registrations.
func (s *UserCommandService) RegisterUser(ctx context.Context, cmd cqrs.RegisterUserCommand) (*models.User, error) {
	_, err := s.users.FindByUsernameOrEmail(ctx, cmd.Username, cmd.Email)
	switch {
	case err == nil:
		return nil, apperr.NewConflict(msgUserExists)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, err
	}

	passwordHash, err := utils.HashPassword(cmd.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, apperr.NewValidation("Password must be at most 72 bytes")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Username:     cmd.Username,
		Email:        cmd.Email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, apperr.NewConflict(msgUserExists)
		}
		return nil, err
	}

	publish(ctx, s.publisher, events.UserEventsStream, events.UserRegistered, events.UserRegisteredEvent{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	return user, nil
}

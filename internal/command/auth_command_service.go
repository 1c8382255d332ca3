package command

import (
	"context"
	"fmt"

	"github.com/fintrack/fintrack/shared/cqrs"
	"github.com/fintrack/fintrack/shared/token"
)

// AuthCommandService revokes access tokens.
type AuthCommandService struct {
	blocklist token.Blocklist
}

func NewAuthCommandService(blocklist token.Blocklist) *AuthCommandService {
	return &AuthCommandService{blocklist: blocklist}
}

func (s *AuthCommandService) Logout(ctx context.Context, cmd cqrs.LogoutCommand) error {
	if err := s.blocklist.Revoke(ctx, cmd.TokenID, cmd.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

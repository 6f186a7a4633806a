package service

import (
	"context"
	"errors"
	"strings"

	"accounthub/internal/auth"
	"accounthub/internal/domain"
)

type ProfileService struct {
	Users UsersStore
}

// ChangePassword requires the current password to match first. An
// OAuth-only account has nothing to change against.
func (s *ProfileService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.Users.GetUserWithPasswordByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}

	if !u.HasPassword() {
		return domain.ErrNoPassword
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, currentPassword)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrWrongPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Users.SetPasswordHash(ctx, userID, hash)
}

func (s *ProfileService) UpdateName(ctx context.Context, userID, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, domain.NewValidationError(map[string]string{"name": "required"})
	}
	if len(name) > 255 {
		return domain.User{}, domain.NewValidationError(map[string]string{"name": "must be less than 255 characters"})
	}
	return s.Users.UpdateName(ctx, userID, name)
}

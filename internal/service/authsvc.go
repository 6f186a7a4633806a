package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"accounthub/internal/auth"
	"accounthub/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, email, name, passwordHash string) (domain.User, error)
	CreateOAuthUser(ctx context.Context, email, name, avatarURL string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	GetUserWithPasswordByID(ctx context.Context, id string) (domain.UserWithPassword, error)
	SetEmailVerified(ctx context.Context, email string, when time.Time) error
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
	UpdateName(ctx context.Context, userID, name string) (domain.User, error)
}

// AuthService is the credential authenticator plus the signup,
// verification, and reset flows built on top of the token lifecycle.
type AuthService struct {
	Users  UsersStore
	Tokens *TokenService
	Now    func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// NormalizeEmail is the canonical form used everywhere an email is
// written or compared.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Signup creates an unverified credentials account and mints its
// verification token. Email delivery is the caller's problem; a send
// failure must not undo the signup.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (domain.User, string, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}

	u, err := s.Users.CreateUser(ctx, email, name, passwordHash)
	if err != nil {
		return domain.User{}, "", err
	}

	rawToken, err := s.Tokens.Issue(ctx, email, domain.PurposeEmailVerification)
	if err != nil {
		return domain.User{}, "", err
	}

	return u, rawToken, nil
}

// Login verifies an email+password pair. Unknown email, a
// password-less (OAuth) account, and a wrong password are
// indistinguishable to the caller; an unverified account gets its own
// actionable error.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = NormalizeEmail(email)

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if !u.HasPassword() {
		return domain.User{}, domain.ErrNoPassword
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	if !u.Verified() {
		return domain.User{}, domain.ErrEmailNotVerified
	}

	return u.User, nil
}

// LoginExternal signs in a provider identity, creating the account on
// first contact. Provider emails are trusted as verified.
func (s *AuthService) LoginExternal(ctx context.Context, identity *auth.ExternalIdentity) (domain.User, error) {
	email := NormalizeEmail(identity.Email)

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err == nil {
		return u.User, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	created, err := s.Users.CreateOAuthUser(ctx, email, strings.TrimSpace(identity.Name), identity.Picture)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			// Lost a race with a concurrent first sign-in.
			existing, lookupErr := s.Users.GetUserByEmail(ctx, email)
			if lookupErr == nil {
				return existing.User, nil
			}
		}
		return domain.User{}, err
	}
	return created, nil
}

// VerifyEmail consumes a verification token and stamps the account.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) error {
	token, err := s.Tokens.Consume(ctx, rawToken, domain.PurposeEmailVerification)
	if err != nil {
		return err
	}
	return s.Users.SetEmailVerified(ctx, token.Identifier, s.now())
}

// ForgotPassword mints a reset token for the account, or quietly does
// nothing when the email is unknown. The caller's response must not
// depend on which happened.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)

	_, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	return s.Tokens.Issue(ctx, email, domain.PurposePasswordReset)
}

// ResetPassword consumes a reset token and replaces the password of
// the account the token is addressed to.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	token, err := s.Tokens.Consume(ctx, rawToken, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	u, err := s.Users.GetUserByEmail(ctx, token.Identifier)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Users.SetPasswordHash(ctx, u.ID, hash)
}

// ResendVerification re-issues the verification token, invalidating
// any earlier one. For an unknown email it returns nothing; for an
// already-verified account it reports that instead of minting.
func (s *AuthService) ResendVerification(ctx context.Context, email string) (rawToken string, alreadyVerified bool, err error) {
	email = NormalizeEmail(email)

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if u.Verified() {
		return "", true, nil
	}

	raw, err := s.Tokens.Issue(ctx, email, domain.PurposeEmailVerification)
	if err != nil {
		return "", false, err
	}
	return raw, false, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.Users.GetUserByID(ctx, id)
}

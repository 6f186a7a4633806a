package domain

import "time"

type User struct {
	ID              string
	Email           string
	Name            string
	AvatarURL       string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (u User) Verified() bool { return u.EmailVerifiedAt != nil }

// UserWithPassword is only returned by login-path store queries. The
// hash must never leave the service layer.
type UserWithPassword struct {
	User
	PasswordHash string
}

// HasPassword reports whether the account can authenticate with a
// password at all. OAuth-created accounts have no hash.
func (u UserWithPassword) HasPassword() bool { return u.PasswordHash != "" }

// TokenPurpose tags an auth token with the single flow it may be
// consumed by. A verification token can never reset a password.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

func (p TokenPurpose) Valid() bool {
	return p == PurposeEmailVerification || p == PurposePasswordReset
}

// AuthToken is a single-use, time-bound token addressed by the
// account's normalized email. Only the sha256 of the raw value is
// stored; the raw value exists once, in the delivered link.
type AuthToken struct {
	TokenHash  string
	Identifier string
	Purpose    TokenPurpose
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

func (t AuthToken) ExpiredAt(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

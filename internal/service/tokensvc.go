package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"accounthub/internal/domain"
)

type TokensStore interface {
	CreateToken(ctx context.Context, token domain.AuthToken) error
	GetToken(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (domain.AuthToken, error)
	ClaimToken(ctx context.Context, tokenHash string, purpose domain.TokenPurpose, now time.Time) (domain.AuthToken, error)
	DeleteToken(ctx context.Context, tokenHash string) error
	DeleteTokensForIdentifier(ctx context.Context, identifier string, purpose domain.TokenPurpose) error
}

// TokenService owns the life of verification and reset tokens: mint,
// validate, consume, and the single-active-token-per-identifier rule.
type TokenService struct {
	Tokens   TokensStore
	TokenTTL time.Duration
	Now      func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) ttl() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 24 * time.Hour
}

// Issue mints a fresh token for the identifier and returns the raw
// value. Outstanding tokens of the same purpose are removed first, so
// only the newest link works.
func (s *TokenService) Issue(ctx context.Context, identifier string, purpose domain.TokenPurpose) (string, error) {
	if s.Tokens == nil {
		return "", fmt.Errorf("token store unavailable")
	}
	if identifier == "" {
		return "", fmt.Errorf("identifier is required")
	}
	if !purpose.Valid() {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}

	if err := s.Tokens.DeleteTokensForIdentifier(ctx, identifier, purpose); err != nil {
		return "", err
	}

	raw, tokenHash, err := newAuthToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	token := domain.AuthToken{
		TokenHash:  tokenHash,
		Identifier: identifier,
		Purpose:    purpose,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl()),
	}
	if err := s.Tokens.CreateToken(ctx, token); err != nil {
		return "", err
	}
	return raw, nil
}

// Validate is the read-only check. A token of the wrong purpose fails
// closed as invalid. An expired token is removed on sight and reported
// as ErrTokenExpired; callers show the same message for both.
func (s *TokenService) Validate(ctx context.Context, raw string, purpose domain.TokenPurpose) (domain.AuthToken, error) {
	if s.Tokens == nil {
		return domain.AuthToken{}, fmt.Errorf("token store unavailable")
	}

	token, err := s.Tokens.GetToken(ctx, HashToken(raw), purpose)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AuthToken{}, domain.ErrTokenInvalid
		}
		return domain.AuthToken{}, err
	}
	if token.ExpiredAt(s.now()) {
		_ = s.Tokens.DeleteToken(ctx, token.TokenHash)
		return domain.AuthToken{}, domain.ErrTokenExpired
	}
	return token, nil
}

// Consume claims the token in a single conditional delete, so a
// double submit can only succeed once. The second attempt sees
// ErrTokenInvalid, or ErrTokenExpired when the row outlived its
// expiry and gets cleaned up here.
func (s *TokenService) Consume(ctx context.Context, raw string, purpose domain.TokenPurpose) (domain.AuthToken, error) {
	if s.Tokens == nil {
		return domain.AuthToken{}, fmt.Errorf("token store unavailable")
	}

	tokenHash := HashToken(raw)
	token, err := s.Tokens.ClaimToken(ctx, tokenHash, purpose, s.now())
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.AuthToken{}, err
	}

	// Claim misses for both absent and expired rows. Distinguish for
	// logging and to garbage-collect the expired row.
	stale, lookupErr := s.Tokens.GetToken(ctx, tokenHash, purpose)
	if lookupErr == nil && stale.ExpiredAt(s.now()) {
		_ = s.Tokens.DeleteToken(ctx, stale.TokenHash)
		return domain.AuthToken{}, domain.ErrTokenExpired
	}
	return domain.AuthToken{}, domain.ErrTokenInvalid
}

func newAuthToken() (string, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read token: %w", err)
	}
	raw := hex.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken is the at-rest form: a storage leak yields no usable
// links.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// TruncateToken shortens a raw token for log lines.
func TruncateToken(raw string) string {
	if len(raw) <= 8 {
		return raw
	}
	return raw[:8] + "..."
}

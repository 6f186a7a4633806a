package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"accounthub/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokensStore struct {
	pool *pgxpool.Pool
}

func NewTokensStore(pool *pgxpool.Pool) *TokensStore {
	return &TokensStore{pool: pool}
}

func (s *TokensStore) CreateToken(ctx context.Context, token domain.AuthToken) error {
	const q = `
		INSERT INTO auth_tokens (token_hash, identifier, purpose, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.pool.Exec(ctx, q,
		token.TokenHash,
		token.Identifier,
		string(token.Purpose),
		token.CreatedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create auth token: %w", err)
	}
	return nil
}

func (s *TokensStore) GetToken(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (domain.AuthToken, error) {
	const q = `
		SELECT token_hash, identifier, purpose, created_at, expires_at
		FROM auth_tokens
		WHERE token_hash = $1 AND purpose = $2
	`

	var token domain.AuthToken
	err := s.pool.QueryRow(ctx, q, tokenHash, string(purpose)).Scan(
		&token.TokenHash,
		&token.Identifier,
		&token.Purpose,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AuthToken{}, domain.ErrNotFound
		}
		return domain.AuthToken{}, fmt.Errorf("get auth token: %w", err)
	}
	return token, nil
}

// ClaimToken deletes the token and returns it in one statement, and
// only if it is still unexpired. Two racing consumers cannot both win.
func (s *TokensStore) ClaimToken(ctx context.Context, tokenHash string, purpose domain.TokenPurpose, now time.Time) (domain.AuthToken, error) {
	const q = `
		DELETE FROM auth_tokens
		WHERE token_hash = $1 AND purpose = $2 AND expires_at > $3
		RETURNING token_hash, identifier, purpose, created_at, expires_at
	`

	var token domain.AuthToken
	err := s.pool.QueryRow(ctx, q, tokenHash, string(purpose), now).Scan(
		&token.TokenHash,
		&token.Identifier,
		&token.Purpose,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AuthToken{}, domain.ErrNotFound
		}
		return domain.AuthToken{}, fmt.Errorf("claim auth token: %w", err)
	}
	return token, nil
}

func (s *TokensStore) DeleteToken(ctx context.Context, tokenHash string) error {
	const q = `DELETE FROM auth_tokens WHERE token_hash = $1`
	if _, err := s.pool.Exec(ctx, q, tokenHash); err != nil {
		return fmt.Errorf("delete auth token: %w", err)
	}
	return nil
}

// DeleteTokensForIdentifier removes every outstanding token of one
// purpose for an email, so re-issuance leaves a single active link.
func (s *TokensStore) DeleteTokensForIdentifier(ctx context.Context, identifier string, purpose domain.TokenPurpose) error {
	const q = `DELETE FROM auth_tokens WHERE identifier = $1 AND purpose = $2`
	if _, err := s.pool.Exec(ctx, q, identifier, string(purpose)); err != nil {
		return fmt.Errorf("delete auth tokens for identifier: %w", err)
	}
	return nil
}

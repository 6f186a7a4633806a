package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"accounthub/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = "id, email, name, password_hash, email_verified_at, avatar_url, created_at, updated_at"

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

// CreateUser inserts a credentials account. Verification is pending
// until a token is consumed, so email_verified_at starts null.
func (s *UsersStore) CreateUser(ctx context.Context, email, name, passwordHash string) (domain.User, error) {
	const q = `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q, email, name, passwordHash))
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}
	return u.User, nil
}

// CreateOAuthUser inserts a provider-created account: no password
// hash, email pre-verified.
func (s *UsersStore) CreateOAuthUser(ctx context.Context, email, name, avatarURL string) (domain.User, error) {
	const q = `
		INSERT INTO users (email, name, avatar_url, email_verified_at)
		VALUES ($1, $2, $3, now())
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q, email, name, nullIfEmpty(avatarURL)))
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}
	return u.User, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u.User, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`

	u, err := scanUser(s.pool.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserWithPasswordByID(ctx context.Context, id string) (domain.UserWithPassword, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user with password: %w", err)
	}
	return u, nil
}

func (s *UsersStore) SetEmailVerified(ctx context.Context, email string, when time.Time) error {
	const q = `
		UPDATE users
		SET email_verified_at = $2, updated_at = now()
		WHERE email = $1
	`
	tag, err := s.pool.Exec(ctx, q, email, when)
	if err != nil {
		return fmt.Errorf("set email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	const q = `
		UPDATE users
		SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, q, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) UpdateName(ctx context.Context, userID, name string) (domain.User, error) {
	const q = `
		UPDATE users
		SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q, userID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("update name: %w", err)
	}
	return u.User, nil
}

func scanUser(row pgx.Row) (domain.UserWithPassword, error) {
	var (
		u          domain.UserWithPassword
		idUUID     pgtype.UUID
		hashText   pgtype.Text
		verifiedTS pgtype.Timestamptz
		avatarText pgtype.Text
	)
	err := row.Scan(
		&idUUID,
		&u.Email,
		&u.Name,
		&hashText,
		&verifiedTS,
		&avatarText,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.UserWithPassword{}, err
	}

	u.ID = uuidOrEmpty(idUUID)
	u.PasswordHash = textOrEmpty(hashText)
	u.EmailVerifiedAt = timestamptzPtr(verifiedTS)
	u.AvatarURL = textOrEmpty(avatarText)
	return u, nil
}

func mapUserWriteError(err error) error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		if pgerr.ConstraintName == "users_email_uq" {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("unique violation (%s): %w", pgerr.ConstraintName, err)
	}
	return fmt.Errorf("create user: %w", err)
}

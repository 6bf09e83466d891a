package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/session-service/internal/domain"
)

type postgresRefreshTokenStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRefreshTokenStore returns a Postgres-backed implementation.
func NewPostgresRefreshTokenStore(pool *pgxpool.Pool) RefreshTokenStore {
	return &postgresRefreshTokenStore{pool: pool}
}

func (s *postgresRefreshTokenStore) Create(ctx context.Context, userID string, ttl time.Duration) (*domain.RefreshToken, error) {
	token, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	record := &domain.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}

	const query = `
        INSERT INTO refresh_tokens (token, user_id, expires_at)
        VALUES ($1, $2, $3)
        RETURNING created_at`

	if err := s.pool.QueryRow(ctx, query,
		record.Token,
		record.UserID,
		record.ExpiresAt,
	).Scan(&record.CreatedAt); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *postgresRefreshTokenStore) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	const query = `
        SELECT token, user_id, expires_at, created_at
        FROM refresh_tokens WHERE token=$1`

	var record domain.RefreshToken
	if err := s.pool.QueryRow(ctx, query, token).Scan(
		&record.Token,
		&record.UserID,
		&record.ExpiresAt,
		&record.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *postgresRefreshTokenStore) VerifyExpiration(ctx context.Context, record *domain.RefreshToken) (*domain.RefreshToken, error) {
	if !record.ExpiredAt(time.Now()) {
		return record, nil
	}

	// The condition on expires_at keeps the check-then-delete a single atomic
	// statement; a concurrent validator that loses the race still reports
	// expiration because the record's timestamp is already past.
	const query = `
        DELETE FROM refresh_tokens
        WHERE token=$1 AND expires_at <= NOW()`

	if _, err := s.pool.Exec(ctx, query, record.Token); err != nil {
		return nil, err
	}
	return nil, ErrRefreshTokenExpired
}

func (s *postgresRefreshTokenStore) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE user_id=$1`

	cmd, err := s.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (s *postgresRefreshTokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= NOW()`

	cmd, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

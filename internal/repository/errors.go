package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNotFound signals a missing user or role row.
	ErrNotFound = errors.New("record not found")
	// ErrRefreshTokenNotFound indicates no record matched the presented token string.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenExpired indicates the record was past expiration; the record
	// has been deleted as a side effect and the caller must sign in again.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// IsNotFound reports whether err is a missing-row condition from any backend.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

package repository

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/spec-kit/session-service/internal/domain"
)

// opaqueTokenBytes is the entropy of a refresh token string (256 bits).
const opaqueTokenBytes = 32

// RefreshTokenStore manages the lifecycle of persisted refresh tokens.
//
// VerifyExpiration is the one contended operation: its check-then-delete must
// be atomic with respect to concurrent validations of the same token. Both of
// two racing callers observe ErrRefreshTokenExpired while only one deletion
// takes effect.
type RefreshTokenStore interface {
	// Create persists a fresh record for the user expiring at now+ttl. Other
	// records owned by the same user are untouched (concurrent sessions).
	Create(ctx context.Context, userID string, ttl time.Duration) (*domain.RefreshToken, error)

	// FindByToken looks up a record by its exact token string.
	// Returns ErrRefreshTokenNotFound when absent.
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)

	// VerifyExpiration returns the record unchanged while it is still active.
	// An expired record is deleted and ErrRefreshTokenExpired is returned;
	// the token can never validate again afterwards.
	VerifyExpiration(ctx context.Context, record *domain.RefreshToken) (*domain.RefreshToken, error)

	// DeleteByUserID removes every record owned by the user and returns the
	// count. Deleting zero records is not an error.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)

	// DeleteExpired prunes all records past expiration. Physical cleanup only;
	// lifecycle rules are enforced by VerifyExpiration regardless.
	DeleteExpired(ctx context.Context) (int64, error)
}

// NewOpaqueToken generates an unguessable refresh token string.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Validation failures. Callers treat all four as "unauthenticated"; the
// distinction exists for diagnostic logging and metrics.
var (
	ErrTokenMalformed   = errors.New("token is malformed")
	ErrTokenExpired     = errors.New("token is expired")
	ErrTokenUnsupported = errors.New("token algorithm is unsupported")
	ErrTokenSignature   = errors.New("token signature is invalid")
)

// FailureKind labels a validation failure for logs and counters.
type FailureKind string

const (
	FailureMalformed   FailureKind = "malformed"
	FailureExpired     FailureKind = "expired"
	FailureUnsupported FailureKind = "unsupported"
	FailureSignature   FailureKind = "signature"
)

// ClassifyFailure maps a Validate error to its failure kind.
func ClassifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return FailureExpired
	case errors.Is(err, ErrTokenUnsupported):
		return FailureUnsupported
	case errors.Is(err, ErrTokenSignature):
		return FailureSignature
	default:
		return FailureMalformed
	}
}

// TokenManager issues and validates HS256-signed access tokens. Signing and
// verification are stateless and safe for unbounded parallel use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a manager. The secret and a positive TTL are
// mandatory; there is no fallback secret.
func NewTokenManager(secret []byte, ttl time.Duration) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive, got %s", ttl)
	}
	return &TokenManager{secret: secret, ttl: ttl}, nil
}

// Generate builds and signs a token for the subject. It needs nothing beyond
// the subject string, so the refresh flow can re-issue without a full
// authentication context.
func (tm *TokenManager) Generate(subject string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Validate parses the token, verifies the signature, and enforces expiration.
// It returns the subject on success, or one of the typed failures above. An
// expired token is rejected even when its signature is otherwise valid.
func (tm *TokenManager) Validate(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return tm.secret, nil
	})
	if err != nil {
		return "", classifyParseError(err)
	}
	if !parsed.Valid {
		return "", ErrTokenSignature
	}
	return claims.Subject, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrTokenSignature, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		// Keyfunc rejections land here, covering non-HS256 algorithms.
		return fmt.Errorf("%w: %v", ErrTokenUnsupported, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

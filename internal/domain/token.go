package domain

import "time"

// RefreshToken is a persisted opaque credential exchangeable for new access tokens.
// The token string is the primary key; a user may hold several records at once.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the record is past its expiration at the given instant.
func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

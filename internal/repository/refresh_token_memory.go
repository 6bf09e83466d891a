package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/session-service/internal/domain"
)

// MemoryRefreshTokenStore is a mutex-guarded in-memory store for tests and
// single-process development runs.
type MemoryRefreshTokenStore struct {
	mu      sync.Mutex
	byToken map[string]*domain.RefreshToken
	byUser  map[string]map[string]struct{}
	now     func() time.Time
}

// NewMemoryRefreshTokenStore creates an empty in-memory store.
func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	return &MemoryRefreshTokenStore{
		byToken: make(map[string]*domain.RefreshToken),
		byUser:  make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

func (s *MemoryRefreshTokenStore) Create(_ context.Context, userID string, ttl time.Duration) (*domain.RefreshToken, error) {
	token, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	record := &domain.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	s.byToken[token] = record
	if s.byUser[userID] == nil {
		s.byUser[userID] = make(map[string]struct{})
	}
	s.byUser[userID][token] = struct{}{}

	copied := *record
	return &copied, nil
}

func (s *MemoryRefreshTokenStore) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byToken[token]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *MemoryRefreshTokenStore) VerifyExpiration(_ context.Context, record *domain.RefreshToken) (*domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !record.ExpiredAt(s.now()) {
		return record, nil
	}

	// Deleting under the lock keeps the check-then-delete atomic; a concurrent
	// validator of the same token finds it already gone and still reports
	// expiration from the record's own timestamp.
	s.deleteLocked(record.Token)
	return nil, ErrRefreshTokenExpired
}

func (s *MemoryRefreshTokenStore) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.byUser[userID]
	count := int64(len(tokens))
	for token := range tokens {
		delete(s.byToken, token)
	}
	delete(s.byUser, userID)
	return count, nil
}

func (s *MemoryRefreshTokenStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var count int64
	for token, record := range s.byToken {
		if record.ExpiredAt(now) {
			s.deleteLocked(token)
			count++
		}
	}
	return count, nil
}

func (s *MemoryRefreshTokenStore) deleteLocked(token string) {
	record, ok := s.byToken[token]
	if !ok {
		return
	}
	delete(s.byToken, token)
	if owned := s.byUser[record.UserID]; owned != nil {
		delete(owned, token)
		if len(owned) == 0 {
			delete(s.byUser, record.UserID)
		}
	}
}

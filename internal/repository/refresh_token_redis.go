package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/session-service/internal/domain"
)

const (
	redisTokenKeyPrefix = "refresh:token:"
	redisUserKeyPrefix  = "refresh:user:"
)

// verifyDeleteScript removes a token record and its user-set member in one
// atomic step. Running server-side guarantees at most one deletion wins when
// validations of the same token race.
var verifyDeleteScript = redis.NewScript(`
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return 1
`)

// deleteByUserScript drops every live token owned by a user and returns the
// count. Keys already reaped by the server-side TTL do not inflate the count.
var deleteByUserScript = redis.NewScript(`
local tokens = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, t in ipairs(tokens) do
  removed = removed + redis.call("DEL", ARGV[1] .. t)
end
redis.call("DEL", KEYS[1])
return removed
`)

type redisRefreshTokenStore struct {
	client *redis.Client
}

// NewRedisRefreshTokenStore returns a Redis-backed implementation. Token keys
// carry a server-side TTL as a safety net; expiration semantics are still
// enforced by VerifyExpiration against the stored timestamp.
func NewRedisRefreshTokenStore(client *redis.Client) RefreshTokenStore {
	return &redisRefreshTokenStore{client: client}
}

func (s *redisRefreshTokenStore) Create(ctx context.Context, userID string, ttl time.Duration) (*domain.RefreshToken, error) {
	token, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := &domain.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisTokenKeyPrefix+token, map[string]interface{}{
		"user_id":    record.UserID,
		"expires_at": record.ExpiresAt.UnixMilli(),
		"created_at": record.CreatedAt.UnixMilli(),
	})
	pipe.PExpireAt(ctx, redisTokenKeyPrefix+token, record.ExpiresAt)
	pipe.SAdd(ctx, redisUserKeyPrefix+userID, token)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *redisRefreshTokenStore) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	fields, err := s.client.HGetAll(ctx, redisTokenKeyPrefix+token).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrRefreshTokenNotFound
	}

	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, err
	}
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, err
	}

	return &domain.RefreshToken{
		Token:     token,
		UserID:    fields["user_id"],
		ExpiresAt: time.UnixMilli(expiresAt),
		CreatedAt: time.UnixMilli(createdAt),
	}, nil
}

func (s *redisRefreshTokenStore) VerifyExpiration(ctx context.Context, record *domain.RefreshToken) (*domain.RefreshToken, error) {
	if !record.ExpiredAt(time.Now()) {
		return record, nil
	}

	keys := []string{redisTokenKeyPrefix + record.Token, redisUserKeyPrefix + record.UserID}
	if err := verifyDeleteScript.Run(ctx, s.client, keys, record.Token).Err(); err != nil {
		return nil, err
	}
	return nil, ErrRefreshTokenExpired
}

func (s *redisRefreshTokenStore) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	keys := []string{redisUserKeyPrefix + userID}
	removed, err := deleteByUserScript.Run(ctx, s.client, keys, redisTokenKeyPrefix).Int64()
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteExpired prunes user-set members whose token keys the server-side TTL
// already reaped.
func (s *redisRefreshTokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	var pruned int64

	iter := s.client.Scan(ctx, 0, redisUserKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		userKey := iter.Val()
		tokens, err := s.client.SMembers(ctx, userKey).Result()
		if err != nil {
			return pruned, err
		}
		for _, token := range tokens {
			exists, err := s.client.Exists(ctx, redisTokenKeyPrefix+token).Result()
			if err != nil {
				return pruned, err
			}
			if exists == 0 {
				if err := s.client.SRem(ctx, userKey, token).Err(); err != nil {
					return pruned, err
				}
				pruned++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, err
	}
	return pruned, nil
}

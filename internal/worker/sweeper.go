package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/repository"
)

// StartSweeper launches a background loop that prunes expired refresh-token
// records on the given interval. Cleanup is cosmetic: expired tokens are
// rejected on use regardless of whether the sweeper has run.
func StartSweeper(ctx context.Context, store repository.RefreshTokenStore, interval time.Duration, logger *zap.Logger) {
	if store == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := store.DeleteExpired(ctx)
				if err != nil {
					logger.Warn("refresh token sweep failed", zap.Error(err))
					continue
				}
				if count > 0 {
					logger.Info("expired refresh tokens removed", zap.Int64("count", count))
				}
			}
		}
	}()
}

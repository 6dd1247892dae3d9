package task

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// SessionPurgeJobName labels the stale-token purge in logs.
	SessionPurgeJobName = "session_purge"

	logEventSessionPurge       = "purge_stale_sessions"
	logEventSessionPurgeFailed = "purge_stale_sessions_failed"
	logFieldRemoved            = "removed"
	logFieldTTL                = "ttl"
)

// StalePurger deletes stored session values older than ttl.
type StalePurger interface {
	PurgeStale(ctx context.Context, ttl time.Duration) (int64, error)
}

// NewSessionPurgeRunner returns a RunnerFunc that drops tokens left behind by
// sessions nobody has used within ttl.
func NewSessionPurgeRunner(purger StalePurger, ttl time.Duration, logger *zap.Logger) RunnerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context) {
		removed, purgeErr := purger.PurgeStale(ctx, ttl)
		if purgeErr != nil {
			logger.Warn(logEventSessionPurgeFailed, zap.Duration(logFieldTTL, ttl), zap.Error(purgeErr))
			return
		}
		if removed > 0 {
			logger.Info(logEventSessionPurge, zap.Int64(logFieldRemoved, removed), zap.Duration(logFieldTTL, ttl))
		}
	}
}

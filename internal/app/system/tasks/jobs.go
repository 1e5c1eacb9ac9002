// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	eventstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/events"
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"go.uber.org/zap"
)

// ResetTokenCleanupJob clears password reset tokens past their expiry so
// stale hashes do not linger on user documents.
func ResetTokenCleanupJob(users *userstore.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "reset-token-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := users.ClearExpiredResetTokens(ctx, time.Now())
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("cleared expired reset tokens", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// EventCleanupJob removes expired community events.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func EventCleanupJob(events *eventstore.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "event-cleanup",
		Interval: 15 * time.Minute,
		Run: func(ctx context.Context) error {
			count, err := events.DeleteExpired(ctx, time.Now())
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("removed expired events", zap.Int64("count", count))
			}
			return nil
		},
	}
}

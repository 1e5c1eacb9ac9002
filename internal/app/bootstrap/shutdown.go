// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, lets queued notifications drain, and
// closes NATS and MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if s := deps.App; s != nil {
		if s.Tasks != nil {
			s.Tasks.Stop()
		}
		if s.Dispatcher != nil {
			logger.Info("draining notification queue")
			s.Dispatcher.Stop()
		}
		if s.Bus != nil {
			s.Bus.Close()
		}
		if s.Limiter != nil {
			s.Limiter.Close()
		}
		if s.GeoLimiter != nil {
			s.GeoLimiter.Close()
		}
	}

	if deps.NATS != nil {
		if err := deps.NATS.Drain(); err != nil {
			logger.Warn("NATS drain failed", zap.Error(err))
			deps.NATS.Close()
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}

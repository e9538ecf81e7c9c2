package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/AuthGate/internal/config/auth-gateway"
	"github.com/NordCoder/AuthGate/internal/obs"
)

func initOTel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (func(context.Context) error, error) {
	ot, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	if cfg.OTEL.Enable {
		logger.Info("otel tracing enabled", zap.String("endpoint", cfg.OTEL.OTLPEndpoint))
	}
	return ot.Shutdown, nil
}

package main

import (
	"context"

	config "github.com/NordCoder/AuthGate/internal/config/auth-gateway"
	pg "github.com/NordCoder/AuthGate/internal/repository/postgres"
)

func initDB(ctx context.Context, cfg *config.Config) (*pg.DB, error) {
	return pg.New(ctx, cfg.DB)
}

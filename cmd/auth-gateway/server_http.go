package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	config "github.com/NordCoder/AuthGate/internal/config/auth-gateway"
	"github.com/NordCoder/AuthGate/internal/events"
	"github.com/NordCoder/AuthGate/internal/obs"
	pg "github.com/NordCoder/AuthGate/internal/repository/postgres"
	"github.com/NordCoder/AuthGate/internal/secret"
	"github.com/NordCoder/AuthGate/internal/services/gateway"
	"github.com/NordCoder/AuthGate/internal/services/notifier"
	"github.com/NordCoder/AuthGate/internal/token"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, db *pg.DB, stream events.Publisher) (*http.Server, error) {
	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:   []byte(cfg.Auth.AccessSecret),
		RefreshSecret:  []byte(cfg.Auth.RefreshSecret),
		ActivateSecret: []byte(cfg.Auth.ActivateSecret),
		ResetSecret:    []byte(cfg.Auth.ResetSecret),
		AccessTTL:      cfg.Auth.AccessTTL,
		RefreshTTL:     cfg.Auth.RefreshTTL,
		ActivateTTL:    cfg.Auth.ActivateTTL,
		ResetTTL:       cfg.Auth.ResetTTL,
	})
	if err != nil {
		return nil, err
	}

	uc := gateway.NewUsecase(
		pg.NewUserRepo(db),
		pg.NewRefreshTokenRepo(db),
		pg.NewTransactor(db, logger),
		issuer,
		secret.NewHasher(cfg.Auth.BcryptCost),
		notifier.New(cfg.SMTP).WithLogger(logger),
		stream,
		logger,
		gateway.Config{RequireVerifiedLogin: cfg.Auth.RequireVerifiedLogin},
	)

	mux := http.NewServeMux()
	gateway.NewController(uc, logger).Register(mux)

	mux.Handle("/metrics", obs.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		hctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := db.Pool.Ping(hctx); err != nil {
			http.Error(w, "unhealthy: db", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := otelhttp.NewHandler(mux, "auth-gateway")

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}, nil
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}

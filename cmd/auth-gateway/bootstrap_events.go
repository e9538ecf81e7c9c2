package main

import (
	"go.uber.org/zap"

	config "github.com/NordCoder/AuthGate/internal/config/auth-gateway"
	"github.com/NordCoder/AuthGate/internal/events"
)

func initEvents(cfg *config.Config, logger *zap.Logger) events.Publisher {
	if !cfg.Kafka.Enable {
		logger.Info("security event stream disabled")
		return events.Nop{}
	}
	logger.Info("security event stream enabled",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
	)
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
}

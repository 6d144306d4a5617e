package main

import (
	"go.uber.org/zap"

	config "github.com/ujjwal-capsitech/GritsaFlow/internal/config/api"
	domainauth "github.com/ujjwal-capsitech/GritsaFlow/internal/domain/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/events"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs/retry"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/repository/kafka"
)

// initEvents returns the publisher used by the use case and, when kafka is
// enabled, the dispatcher that must be run and the producer to close.
func initEvents(cfg *config.Config, logger *zap.Logger) (domainauth.EventPublisher, *events.Dispatcher, func()) {
	if !cfg.Kafka.Enable {
		logger.Info("session events disabled")
		return events.Discard{}, nil, func() {}
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
	d := events.NewDispatcher(logger, kafka.NewSessionEvents(producer), retry.DefaultPublishPolicy(logger), events.Config{
		Workers:      cfg.Kafka.Workers,
		QueueSize:    cfg.Kafka.QueueSize,
		DrainTimeout: cfg.Kafka.DrainTimeout,
	})
	logger.Info("session events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return d, d, func() { _ = producer.Close() }
}

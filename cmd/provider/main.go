// Command provider runs the provider adapter: it consumes
// provider.authorize.requested, calls the simulated external processor
// under a bounded retry schedule and circuit breaker, and produces exactly
// one authorize outcome per request.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paysaga/internal/platform/broker"
	"paysaga/internal/platform/circuit"
	"paysaga/internal/platform/config"
	"paysaga/internal/platform/logging"
	"paysaga/internal/platform/outbox"
	"paysaga/internal/provider/consumer"
	"paysaga/internal/provider/domain"
	"paysaga/internal/provider/store"
)

const serviceName = "provider"

type container struct {
	producer     *broker.Producer
	outboxWorker *outbox.Worker
	consumer     *broker.Consumer
}

func main() {
	logging.Init(serviceName, config.LoadLogging())

	circuit.Configure(3*time.Second, 50, 50)

	c, err := build(context.Background())
	if err != nil {
		logging.Error("provider: failed to initialize", err, nil)
		os.Exit(1)
	}

	c.outboxWorker.Start(context.Background())
	c.consumer.Start()

	logging.Info("provider: consumer started", nil)
	waitForShutdown(c)
}

func build(ctx context.Context) (*container, error) {
	dbCfg := config.LoadDatabase(serviceName)
	pool, err := store.NewPool(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("provider: db pool: %w", err)
	}
	s := store.New(pool)

	brokerCfg := broker.ConfigFromPlatform(config.LoadBroker(serviceName))
	producer, err := broker.NewProducer(brokerCfg)
	if err != nil {
		return nil, fmt.Errorf("provider: broker producer: %w", err)
	}

	outboxWorker := outbox.NewWorker(serviceName, s.Outbox, producer, 4)

	cons := consumer.New(s)
	brokerConsumer, err := broker.NewConsumer(brokerCfg, []string{
		domain.TopicProviderAuthorizeRequested,
	}, cons.Handle)
	if err != nil {
		return nil, fmt.Errorf("provider: broker consumer: %w", err)
	}

	return &container{producer: producer, outboxWorker: outboxWorker, consumer: brokerConsumer}, nil
}

func waitForShutdown(c *container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("provider: shutting down", nil)
	c.outboxWorker.Stop()
	if err := c.consumer.Stop(); err != nil {
		logging.Error("provider: consumer shutdown failed", err, nil)
	}
	if err := c.producer.Close(); err != nil {
		logging.Error("provider: producer close failed", err, nil)
	}
	logging.Info("provider: shutdown complete", nil)
}

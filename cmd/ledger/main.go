// Command ledger runs the double-entry ledger: it consumes
// payments.captured, posts append-only debit/credit rows, emits
// payments.settled, and exposes on-demand and periodic reconciliation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"paysaga/internal/ledger/api"
	"paysaga/internal/ledger/consumer"
	"paysaga/internal/ledger/domain"
	"paysaga/internal/ledger/reconciliation"
	"paysaga/internal/ledger/store"
	"paysaga/internal/platform/broker"
	"paysaga/internal/platform/config"
	"paysaga/internal/platform/logging"
	"paysaga/internal/platform/outbox"
)

const serviceName = "ledger"

type container struct {
	store        *store.Store
	producer     *broker.Producer
	outboxWorker *outbox.Worker
	consumer     *broker.Consumer
	sweeper      *reconciliation.Sweeper
	server       *http.Server
}

func (c *container) GetStore() *store.Store { return c.store }

func main() {
	logging.Init(serviceName, config.LoadLogging())

	c, err := build(context.Background())
	if err != nil {
		logging.Error("ledger: failed to initialize", err, nil)
		os.Exit(1)
	}

	c.outboxWorker.Start(context.Background())
	c.consumer.Start()
	if err := c.sweeper.Start(config.GetEnv("LEDGER_RECONCILIATION_CRON", "@every 5m")); err != nil {
		logging.Error("ledger: failed to start reconciliation sweep", err, nil)
		os.Exit(1)
	}

	go func() {
		logging.Info("ledger: HTTP server listening", map[string]interface{}{"addr": c.server.Addr})
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("ledger: server failed", err, nil)
			os.Exit(1)
		}
	}()

	waitForShutdown(c)
}

func build(ctx context.Context) (*container, error) {
	dbCfg := config.LoadDatabase(serviceName)
	pool, err := store.NewPool(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("ledger: db pool: %w", err)
	}
	s := store.New(pool)

	brokerCfg := broker.ConfigFromPlatform(config.LoadBroker(serviceName))
	producer, err := broker.NewProducer(brokerCfg)
	if err != nil {
		return nil, fmt.Errorf("ledger: broker producer: %w", err)
	}

	outboxWorker := outbox.NewWorker(serviceName, s.Outbox, producer, 2)

	cons := consumer.New(s)
	brokerConsumer, err := broker.NewConsumer(brokerCfg, []string{
		domain.TopicPaymentsCaptured,
	}, cons.Handle)
	if err != nil {
		return nil, fmt.Errorf("ledger: broker consumer: %w", err)
	}

	sweeper := reconciliation.NewSweeper(s)

	if os.Getenv("ENVIRONMENT") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	c := &container{store: s}
	api.RegisterRoutes(router, c)

	serverCfg := config.LoadServer("8083")
	c.producer = producer
	c.outboxWorker = outboxWorker
	c.consumer = brokerConsumer
	c.sweeper = sweeper
	c.server = &http.Server{
		Addr:           serverCfg.Addr(),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return c, nil
}

func waitForShutdown(c *container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("ledger: shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.server.Shutdown(ctx); err != nil {
		logging.Error("ledger: server shutdown failed", err, nil)
	}
	c.sweeper.Stop()
	c.outboxWorker.Stop()
	if err := c.consumer.Stop(); err != nil {
		logging.Error("ledger: consumer shutdown failed", err, nil)
	}
	if err := c.producer.Close(); err != nil {
		logging.Error("ledger: producer close failed", err, nil)
	}
	logging.Info("ledger: shutdown complete", nil)
}

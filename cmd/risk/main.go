// Command risk runs the risk engine: it consumes payments.requested and
// payments.failed, evaluates velocity/amount/failure-rate heuristics, and
// exposes the operator review queue.
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

	"paysaga/internal/platform/authgate"
	"paysaga/internal/platform/broker"
	"paysaga/internal/platform/cache"
	"paysaga/internal/platform/config"
	"paysaga/internal/platform/logging"
	"paysaga/internal/platform/outbox"
	"paysaga/internal/risk/api"
	"paysaga/internal/risk/consumer"
	riskconfig "paysaga/internal/risk/config"
	"paysaga/internal/risk/domain"
	"paysaga/internal/risk/store"
)

const serviceName = "risk"

type container struct {
	store        *store.Store
	producer     *broker.Producer
	outboxWorker *outbox.Worker
	consumer     *broker.Consumer
	server       *http.Server
}

func (c *container) GetStore() *store.Store { return c.store }

func main() {
	logging.Init(serviceName, config.LoadLogging())

	c, err := build(context.Background())
	if err != nil {
		logging.Error("risk: failed to initialize", err, nil)
		os.Exit(1)
	}

	c.outboxWorker.Start(context.Background())
	c.consumer.Start()

	go func() {
		logging.Info("risk: HTTP server listening", map[string]interface{}{"addr": c.server.Addr})
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("risk: server failed", err, nil)
			os.Exit(1)
		}
	}()

	waitForShutdown(c)
}

func build(ctx context.Context) (*container, error) {
	dbCfg := config.LoadDatabase(serviceName)
	pool, err := store.NewPool(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("risk: db pool: %w", err)
	}
	s := store.New(pool)

	cacheClient := cache.New(config.LoadCache())

	brokerCfg := broker.ConfigFromPlatform(config.LoadBroker(serviceName))
	producer, err := broker.NewProducer(brokerCfg)
	if err != nil {
		return nil, fmt.Errorf("risk: broker producer: %w", err)
	}

	outboxWorker := outbox.NewWorker(serviceName, s.Outbox, producer, 2)

	cons := consumer.New(s, cacheClient, riskconfig.LoadThresholds())
	brokerConsumer, err := broker.NewConsumer(brokerCfg, []string{
		domain.TopicPaymentsRequested,
		domain.TopicPaymentsFailed,
	}, cons.Handle)
	if err != nil {
		return nil, fmt.Errorf("risk: broker consumer: %w", err)
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	c := &container{store: s}
	secret := config.GetEnv("RISK_OPERATOR_JWT_SECRET", "dev-secret-change-me")
	gate := authgate.New(secret, "operator")
	api.RegisterRoutes(router, c, gate)

	serverCfg := config.LoadServer("8082")
	c.producer = producer
	c.outboxWorker = outboxWorker
	c.consumer = brokerConsumer
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

	logging.Info("risk: shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.server.Shutdown(ctx); err != nil {
		logging.Error("risk: server shutdown failed", err, nil)
	}
	c.outboxWorker.Stop()
	if err := c.consumer.Stop(); err != nil {
		logging.Error("risk: consumer shutdown failed", err, nil)
	}
	if err := c.producer.Close(); err != nil {
		logging.Error("risk: producer close failed", err, nil)
	}
	logging.Info("risk: shutdown complete", nil)
}

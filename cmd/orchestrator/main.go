// Command orchestrator runs the payment saga's source-of-truth service:
// the HTTP ingress, the saga step consumers, and the outbox publisher
// pool, wired together the way the teacher's internal/pkg/components
// container wires the banking API — one struct holding every long-lived
// dependency, an explicit init sequence, graceful shutdown on SIGINT/SIGTERM.
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

	"paysaga/internal/orchestrator/api"
	"paysaga/internal/orchestrator/consumer"
	"paysaga/internal/orchestrator/domain"
	"paysaga/internal/orchestrator/store"
	"paysaga/internal/platform/broker"
	"paysaga/internal/platform/cache"
	"paysaga/internal/platform/config"
	"paysaga/internal/platform/logging"
	"paysaga/internal/platform/outbox"
	"paysaga/internal/platform/ratelimit"
)

const serviceName = "orchestrator"

// container holds every long-lived dependency this process owns.
type container struct {
	store        *store.Store
	cache        *cache.Cache
	producer     *broker.Producer
	outboxWorker *outbox.Worker
	consumer     *broker.Consumer
	router       *gin.Engine
	server       *http.Server
}

func (c *container) GetStore() *store.Store { return c.store }
func (c *container) GetCache() *cache.Cache { return c.cache }

func main() {
	logging.Init(serviceName, config.LoadLogging())

	c, err := build(context.Background())
	if err != nil {
		logging.Error("orchestrator: failed to initialize", err, nil)
		os.Exit(1)
	}

	c.outboxWorker.Start(context.Background())
	c.consumer.Start()

	go func() {
		logging.Info("orchestrator: HTTP server listening", map[string]interface{}{"addr": c.server.Addr})
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("orchestrator: server failed", err, nil)
			os.Exit(1)
		}
	}()

	waitForShutdown(c)
}

func build(ctx context.Context) (*container, error) {
	dbCfg := config.LoadDatabase(serviceName)
	pool, err := store.NewPool(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: db pool: %w", err)
	}
	s := store.New(pool)

	cacheClient := cache.New(config.LoadCache())

	brokerCfg := broker.ConfigFromPlatform(config.LoadBroker(serviceName))
	producer, err := broker.NewProducer(brokerCfg)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: broker producer: %w", err)
	}

	outboxWorker := outbox.NewWorker(serviceName, s.Outbox, producer, 4)

	cons := consumer.New(s)
	brokerConsumer, err := broker.NewConsumer(brokerCfg, []string{
		domain.TopicRiskApproved,
		domain.TopicRiskDenied,
		domain.TopicPaymentsAuthorized,
		domain.TopicPaymentsFailed,
		domain.TopicPaymentsSettled,
	}, cons.Handle)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: broker consumer: %w", err)
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	c := &container{store: s, cache: cacheClient}
	limiter := ratelimit.New(50, 100)
	api.RegisterRoutes(router, c, limiter)

	serverCfg := config.LoadServer("8081")
	c.producer = producer
	c.outboxWorker = outboxWorker
	c.consumer = brokerConsumer
	c.router = router
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

	logging.Info("orchestrator: shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.server.Shutdown(ctx); err != nil {
		logging.Error("orchestrator: server shutdown failed", err, nil)
	}
	c.outboxWorker.Stop()
	if err := c.consumer.Stop(); err != nil {
		logging.Error("orchestrator: consumer shutdown failed", err, nil)
	}
	if err := c.producer.Close(); err != nil {
		logging.Error("orchestrator: producer close failed", err, nil)
	}
	logging.Info("orchestrator: shutdown complete", nil)
}

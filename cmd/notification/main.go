// Command notification runs the notification sink: it consumes terminal
// payment outcomes and records them, with a supplemental websocket feed an
// operator UI can attach to.
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

	"paysaga/internal/notification/consumer"
	"paysaga/internal/notification/domain"
	"paysaga/internal/notification/feed"
	"paysaga/internal/notification/store"
	"paysaga/internal/platform/broker"
	"paysaga/internal/platform/config"
	"paysaga/internal/platform/logging"
	"paysaga/internal/platform/telemetry"
)

const serviceName = "notification"

type container struct {
	consumer *broker.Consumer
	server   *http.Server
}

func main() {
	logging.Init(serviceName, config.LoadLogging())

	c, err := build(context.Background())
	if err != nil {
		logging.Error("notification: failed to initialize", err, nil)
		os.Exit(1)
	}

	c.consumer.Start()

	go func() {
		logging.Info("notification: HTTP server listening", map[string]interface{}{"addr": c.server.Addr})
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("notification: server failed", err, nil)
			os.Exit(1)
		}
	}()

	waitForShutdown(c)
}

func build(ctx context.Context) (*container, error) {
	dbCfg := config.LoadDatabase(serviceName)
	pool, err := store.NewPool(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("notification: db pool: %w", err)
	}
	s := store.New(pool)

	liveFeed := feed.New()

	brokerCfg := broker.ConfigFromPlatform(config.LoadBroker(serviceName))

	cons := consumer.New(s, liveFeed)
	brokerConsumer, err := broker.NewConsumer(brokerCfg, []string{
		domain.TopicPaymentsSettled,
		domain.TopicPaymentsFailed,
		domain.TopicPaymentsReversed,
	}, cons.Handle)
	if err != nil {
		return nil, fmt.Errorf("notification: broker consumer: %w", err)
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(telemetry.Middleware(serviceName))
	router.GET("/metrics", telemetry.Handler())
	router.GET("/feed", gin.WrapF(liveFeed.Handler))

	serverCfg := config.LoadServer("8084")
	return &container{
		consumer: brokerConsumer,
		server: &http.Server{
			Addr:           serverCfg.Addr(),
			Handler:        router,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
	}, nil
}

func waitForShutdown(c *container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("notification: shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.server.Shutdown(ctx); err != nil {
		logging.Error("notification: server shutdown failed", err, nil)
	}
	if err := c.consumer.Stop(); err != nil {
		logging.Error("notification: consumer shutdown failed", err, nil)
	}
	logging.Info("notification: shutdown complete", nil)
}

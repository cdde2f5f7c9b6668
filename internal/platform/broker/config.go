// Package broker wraps github.com/IBM/sarama the way the teacher's own
// internal/infrastructure/messaging/kafka package does: a thin Config ->
// sarama.Config translation, a synchronous producer, and a consumer-group
// wrapper that commits offsets manually so every consumer gets
// at-least-once delivery and must rely on the inbox runtime for
// idempotence rather than the broker.
package broker

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"paysaga/internal/platform/config"
)

type Config struct {
	Brokers      []string
	ClientID     string
	GroupID      string
	RequiredAcks string
	MaxRetries   int
	RetryBackoff time.Duration
}

func ConfigFromPlatform(c config.Broker) Config {
	return Config{
		Brokers:      c.Brokers,
		ClientID:     c.ClientID,
		GroupID:      c.GroupID,
		RequiredAcks: c.RequiredAcks,
		MaxRetries:   5,
		RetryBackoff: 100 * time.Millisecond,
	}
}

func (c Config) toSaramaConfig() (*sarama.Config, error) {
	cfg := sarama.NewConfig()

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Retry.Max = c.MaxRetries
	cfg.Producer.Retry.Backoff = c.RetryBackoff
	cfg.Producer.Compression = sarama.CompressionSnappy

	switch c.RequiredAcks {
	case "all", "-1":
		cfg.Producer.RequiredAcks = sarama.WaitForAll
	case "1":
		cfg.Producer.RequiredAcks = sarama.WaitForLocal
	case "0":
		cfg.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, fmt.Errorf("broker: invalid required acks value %q", c.RequiredAcks)
	}

	cfg.ClientID = c.ClientID
	cfg.Version = sarama.V3_0_0_0

	return cfg, nil
}

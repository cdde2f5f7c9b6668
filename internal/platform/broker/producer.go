package broker

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"paysaga/internal/platform/eventenvelope"
	"paysaga/internal/platform/logging"
)

// Producer publishes event envelopes synchronously, keyed by aggregate ID
// so every event for the same payment lands on the same partition and is
// processed in order by a single consumer.
type Producer struct {
	producer sarama.SyncProducer
	mu       sync.RWMutex
	closed   bool
}

func NewProducer(cfg Config) (*Producer, error) {
	saramaConfig, err := cfg.toSaramaConfig()
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("broker: new producer: %w", err)
	}
	logging.Info("broker producer initialized", map[string]interface{}{"brokers": cfg.Brokers, "client_id": cfg.ClientID})
	return &Producer{producer: producer}, nil
}

// Publish sends env to topic, keyed by env.AggregateID.
func (p *Producer) Publish(topic string, env eventenvelope.Envelope) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("broker: producer is closed")
	}
	p.mu.RUnlock()

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("broker: marshal envelope: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(env.AggregateID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		logging.Error("broker: publish failed", err, map[string]interface{}{"topic": topic, "event_id": env.EventID})
		return fmt.Errorf("broker: send message: %w", err)
	}

	logging.Debug("broker: event published", map[string]interface{}{
		"topic": topic, "partition": partition, "offset": offset, "event_id": env.EventID, "type": env.Type,
	})
	return nil
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.producer.Close()
}

func (p *Producer) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

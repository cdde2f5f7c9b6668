package broker

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/IBM/sarama"

	"paysaga/internal/platform/eventenvelope"
	"paysaga/internal/platform/logging"
)

// HandlerFunc processes one envelope read from a topic. Returning a nil
// error marks and commits the message's offset (at-least-once: the
// message will not be redelivered on the happy path). Returning an error
// leaves the offset uncommitted so the message is redelivered after a
// rebalance or restart — callers that want to drop a message without
// retrying (e.g. a malformed payload) should log it and return nil instead.
type HandlerFunc func(ctx context.Context, env eventenvelope.Envelope) error

// Consumer wraps a sarama.ConsumerGroup with manual offset commit, the same
// at-least-once shape as the teacher's DepositConsumer.
type Consumer struct {
	group  sarama.ConsumerGroup
	topics []string
	handle HandlerFunc
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewConsumer builds a consumer-group client for the given topics. Every
// message on every topic is dispatched to handle; handlers that care about
// which topic a message came from should branch on env.Type.
func NewConsumer(cfg Config, topics []string, handle HandlerFunc) (*Consumer, error) {
	saramaConfig, err := cfg.toSaramaConfig()
	if err != nil {
		return nil, err
	}

	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = false

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{group: group, topics: topics, handle: handle, ctx: ctx, cancel: cancel}, nil
}

// Start launches the consume loop and error-drain goroutine. It returns
// immediately; call Stop to shut down.
func (c *Consumer) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		handler := &groupHandler{handle: c.handle}
		for {
			if err := c.group.Consume(c.ctx, c.topics, handler); err != nil {
				logging.Error("broker: consume error", err, map[string]interface{}{"topics": c.topics})
			}
			if c.ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case err, ok := <-c.group.Errors():
				if !ok {
					return
				}
				logging.Error("broker: consumer group error", err, nil)
			case <-c.ctx.Done():
				return
			}
		}
	}()
}

func (c *Consumer) Stop() error {
	c.cancel()
	c.wg.Wait()
	return c.group.Close()
}

type groupHandler struct {
	handle HandlerFunc
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			var env eventenvelope.Envelope
			if err := json.Unmarshal(message.Value, &env); err != nil {
				logging.Error("broker: malformed envelope, dropping", err, map[string]interface{}{"offset": message.Offset})
				session.MarkMessage(message, "")
				session.Commit()
				continue
			}

			if err := h.handle(session.Context(), env); err != nil {
				logging.Warn("broker: handler failed, leaving uncommitted for redelivery", map[string]interface{}{
					"event_id": env.EventID, "type": env.Type, "error": err.Error(),
				})
				continue
			}

			session.MarkMessage(message, "")
			session.Commit()

		case <-session.Context().Done():
			return nil
		}
	}
}

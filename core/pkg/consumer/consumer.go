// Package consumer holds Consumer, the topic-subscribed pull loop that
// hands detached messages to a user handler under a concurrency bound.
package consumer

import (
	"context"

	"github.com/madcok-co/streamrpc/core/pkg/clientconfig"
	"github.com/madcok-co/streamrpc/core/pkg/contracts"
)

// Handler processes one message pulled off the subscription. Individual
// failures are logged and ignored — the stream is never torn down by a
// handler error.
type Handler func(ctx context.Context, msg *contracts.BrokerMessage) error

// Consumer wraps a contracts.Broker consumer group subscription with a
// bounded-concurrency dispatch gate.
type Consumer struct {
	broker           contracts.ConsumerBroker
	logger           contracts.Logger
	group            string
	topics           []string
	concurrencyLimit int
}

// New builds a Consumer from cfg, subscribing to cfg.ResolvedTopics()
// under the cfg.ClusterId consumer group.
func New(broker contracts.ConsumerBroker, cfg *clientconfig.ClientConfig, logger contracts.Logger) *Consumer {
	return &Consumer{
		broker:           broker,
		logger:           logger,
		group:            cfg.ClusterId,
		topics:           cfg.ResolvedTopics(),
		concurrencyLimit: cfg.ResolvedConcurrencyLimit(),
	}
}

// Start subscribes to the consumer's topics and dispatches every message
// to handler, bounding in-flight invocations to concurrencyLimit. It
// returns once the underlying broker subscription has entered its
// processing loop (the broker driver's own rendezvous), giving callers a
// well-defined point to begin publishing.
func (c *Consumer) Start(ctx context.Context, handler Handler) error {
	sem := make(chan struct{}, c.concurrencyLimit)

	wrapped := func(ctx context.Context, msg *contracts.BrokerMessage) error {
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()

			if err := handler(ctx, msg); err != nil {
				if c.logger != nil {
					c.logger.Warn("handler failed, message dropped", "topic", msg.Topic, "error", err)
				}
			}
		}()
		return nil
	}

	if c.logger != nil {
		c.logger.Info("consumer subscribing", "group", c.group, "topics", c.topics)
	}

	if err := c.broker.ConsumeGroup(ctx, c.group, c.topics, wrapped); err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Info("consumer is ready to process messages", "group", c.group)
	}
	return nil
}

// Stop leaves the consumer group, letting in-flight handlers run to
// completion without forced cancellation.
func (c *Consumer) Stop() error {
	return c.broker.LeaveGroup(c.group)
}

// Package producer wraps a contracts.Broker as a fire-and-forget
// envelope publisher with a fixed client-side send deadline.
package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/madcok-co/streamrpc/contrib/codec/brotli"
	"github.com/madcok-co/streamrpc/core/pkg/contracts"
	"github.com/madcok-co/streamrpc/core/pkg/envelope"
	"github.com/madcok-co/streamrpc/core/pkg/kerrors"
)

// SendDeadline is the fixed client-side wait for broker acknowledgement,
// independent of any RequestSender per-call await timeout.
const SendDeadline = 5 * time.Second

// Producer publishes envelopes with acks=0 (fire-and-forget) semantics;
// the broker driver's own RequiredAcks setting governs durability.
type Producer struct {
	broker      contracts.Publisher
	logger      contracts.Logger
	compression string
}

// New wraps broker as a Producer. logger may be nil. compression names an
// optional payload codec (brotli.Name, or "" for none) applied to the
// serialized envelope before it is published; the consuming side must be
// configured with the same setting to read it back.
func New(broker contracts.Publisher, logger contracts.Logger, compression string) *Producer {
	return &Producer{broker: broker, logger: logger, compression: compression}
}

// Send serializes env to JSON, optionally compresses it, and publishes it
// to topic, waiting up to SendDeadline for the broker to acknowledge. A
// broker or compression error is wrapped as kerrors.InternalServerError;
// there are no retries beyond whatever the broker client itself performs.
func (p *Producer) Send(ctx context.Context, env *envelope.Envelope, topic string) *kerrors.KafkaError {
	body, err := json.Marshal(env)
	if err != nil {
		return kerrors.NewSerializationError(err.Error())
	}

	if p.compression == brotli.Name {
		body, err = brotli.Compress(body)
		if err != nil {
			return kerrors.NewInternalServerError("Failed to compress payload: " + err.Error())
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, SendDeadline)
	defer cancel()

	msg := contracts.NewBrokerMessage(topic, body)
	published := make(chan error, 1)
	go func() { published <- p.broker.Publish(sendCtx, topic, msg) }()
	select {
	case err = <-published:
	case <-sendCtx.Done():
		err = sendCtx.Err()
	}
	if err != nil {
		if p.logger != nil {
			p.logger.Error("failed to send message to kafka", "topic", topic, "transactionId", env.TransactionId, "error", err)
		}
		return kerrors.NewInternalServerError("Failed to send message to Kafka: " + err.Error())
	}

	if p.logger != nil {
		p.logger.Info("sent message", "topic", topic, "transactionId", env.TransactionId, "uri", env.Uri)
	}
	return nil
}

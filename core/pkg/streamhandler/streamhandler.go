// Package streamhandler composes a Consumer, a RouteRegistry and a
// Producer into the server side of the RPC protocol: decode → dispatch
// → reply.
package streamhandler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/madcok-co/streamrpc/contrib/codec/brotli"
	"github.com/madcok-co/streamrpc/core/pkg/clientconfig"
	"github.com/madcok-co/streamrpc/core/pkg/consumer"
	"github.com/madcok-co/streamrpc/core/pkg/contracts"
	"github.com/madcok-co/streamrpc/core/pkg/envelope"
	"github.com/madcok-co/streamrpc/core/pkg/kerrors"
	"github.com/madcok-co/streamrpc/core/pkg/producer"
	"github.com/madcok-co/streamrpc/core/pkg/registry"
)

// StreamHandler is the consumer/dispatcher over a service topic.
type StreamHandler struct {
	config      *clientconfig.ClientConfig
	consumer    *consumer.Consumer
	producer    *producer.Producer
	routes      *registry.RouteRegistry
	logger      contracts.Logger
	compression string
}

// New builds a StreamHandler over the service topic named by cfg's
// resolved topics, with cfg's resolved concurrency limit. cfg's
// payloadCompression option, if set, is applied to outgoing replies and
// expected on incoming requests.
func New(cfg *clientconfig.ClientConfig, broker contracts.Broker, routes *registry.RouteRegistry, logger contracts.Logger) *StreamHandler {
	compression := cfg.ResolvedPayloadCompression()
	if logger != nil {
		logger = logger.Named("streamhandler")
	}
	return &StreamHandler{
		config:      cfg,
		consumer:    consumer.New(broker, cfg, logger),
		producer:    producer.New(broker, logger, compression),
		routes:      routes,
		logger:      logger,
		compression: compression,
	}
}

// Config returns the ClientConfig this StreamHandler was built from.
func (h *StreamHandler) Config() *clientconfig.ClientConfig {
	return h.config
}

// Start launches the consumer with handleMessage as its per-message
// handler. The server's own sourceId for outgoing replies is the
// configured clusterId.
func (h *StreamHandler) Start(ctx context.Context) error {
	return h.consumer.Start(ctx, func(ctx context.Context, msg *contracts.BrokerMessage) error {
		h.handleMessage(ctx, msg)
		return nil
	})
}

// Stop leaves the underlying consumer group.
func (h *StreamHandler) Stop() error {
	return h.consumer.Stop()
}

func (h *StreamHandler) handleMessage(ctx context.Context, msg *contracts.BrokerMessage) {
	start := time.Now()

	if len(msg.Body) == 0 {
		return
	}
	body := msg.Body
	if h.compression == brotli.Name {
		plain, err := brotli.Decompress(body)
		if err != nil {
			if h.logger != nil {
				h.logger.Warn("failed to decompress message body", "topic", msg.Topic, "error", err)
			}
			return
		}
		body = plain
	}
	payload := string(body)

	latency := envelope.GetLatency(msg.Timestamp, time.Time{})
	if h.logger != nil {
		h.logger.Info("received message", "payload", payload, "topic", msg.Topic, "latency", envelope.FormatLatency(latency))
	}

	env := envelope.ParseFromString(payload)
	if env == nil {
		if h.logger != nil {
			h.logger.Warn("failed to parse message from kafka payload", "topic", msg.Topic)
		}
		return
	}

	handler := h.routes.GetHandler(env.Uri)
	if handler == nil {
		h.sendNotFoundUriResponse(ctx, env, start)
		return
	}

	result, hErr := handler(env)
	if hErr != nil {
		if h.logger != nil {
			h.logger.Error("error handling request", "uri", env.Uri, "transactionId", env.TransactionId, "error", hErr)
		}
		h.handleResponseError(ctx, env, start, hErr)
		return
	}

	if result.IsAcknowledge() {
		duration := time.Since(start).Milliseconds()
		if h.logger != nil {
			h.logger.Info("2. acknowledge request (no response)", "uri", env.Uri, "transactionId", env.TransactionId, "durationMs", duration)
		}
		return
	}

	h.handleResponseOk(ctx, env, start, result.Payload())
}

func (h *StreamHandler) sendNotFoundUriResponse(ctx context.Context, env *envelope.Envelope, start time.Time) {
	if h.logger != nil {
		h.logger.Warn("no handler found for uri", "uri", env.Uri)
	}
	notFound := kerrors.NewUriNotFound(env.Uri)
	h.handleResponse(ctx, env, start, notFound.ToResponseValue(), "1.")
}

func (h *StreamHandler) handleResponseError(ctx context.Context, env *envelope.Envelope, start time.Time, hErr *kerrors.KafkaError) {
	h.handleResponse(ctx, env, start, hErr.ToResponseValue(), "3.")
}

func (h *StreamHandler) handleResponseOk(ctx context.Context, env *envelope.Envelope, start time.Time, payload any) {
	h.handleResponse(ctx, env, start, map[string]any{"data": payload}, "4.")
}

func (h *StreamHandler) handleResponse(ctx context.Context, env *envelope.Envelope, start time.Time, data any, logPrefix string) {
	if env.ShouldRespond() {
		h.sendResponse(ctx, env.MessageId, env.TransactionId, env.ResponseDestination.Topic, env.ResponseDestination.Uri, data)
	}

	duration := time.Since(start).Milliseconds()
	if h.logger != nil {
		h.logger.Info(logPrefix+" handle request took", "uri", env.Uri, "transactionId", env.TransactionId, "durationMs", duration)
	}
}

func (h *StreamHandler) sendResponse(ctx context.Context, messageId, transactionId, topic, uri string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to serialize response", "error", err)
		}
		return
	}

	respType := envelope.Response
	env := &envelope.Envelope{
		MessageType:   respType,
		SourceId:      h.config.ClusterId,
		TransactionId: transactionId,
		MessageId:     messageId,
		Uri:           uri,
		Data:          raw,
	}

	if kerr := h.producer.Send(ctx, env, topic); kerr != nil && h.logger != nil {
		h.logger.Error("failed to send response", "error", kerr)
	}
}

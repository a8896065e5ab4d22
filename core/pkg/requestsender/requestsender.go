// Package requestsender holds RequestSender, the correlated-request
// client: publish a REQUEST envelope, await its matching RESPONSE on a
// private reply topic, or time out.
package requestsender

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/madcok-co/streamrpc/contrib/codec/brotli"
	"github.com/madcok-co/streamrpc/core/pkg/clientconfig"
	"github.com/madcok-co/streamrpc/core/pkg/consumer"
	"github.com/madcok-co/streamrpc/core/pkg/contracts"
	"github.com/madcok-co/streamrpc/core/pkg/envelope"
	"github.com/madcok-co/streamrpc/core/pkg/kerrors"
	"github.com/madcok-co/streamrpc/core/pkg/producer"
)

// replyUri is the fixed uri stamped on every request envelope's
// responseDestination (and so carried as the uri of each reply);
// RequestSender never registers routes for it, it keys replies off
// transactionId instead.
const replyUri = "REQUEST_RESPONSE"

// RequestParams holds the parameters for sendRequestAsync, built with
// the chainable With* methods.
type RequestParams struct {
	Topic         string
	Uri           string
	TransactionId string
	MessageId     string
	Data          any
	TimeoutSecs   int64
}

// NewRequestParams creates a RequestParams with no transactionId (one is
// minted on send) and no override timeout (the sender's default applies).
func NewRequestParams(topic, uri string, data any) *RequestParams {
	return &RequestParams{Topic: topic, Uri: uri, Data: data}
}

func (p *RequestParams) WithTransactionID(id string) *RequestParams {
	p.TransactionId = id
	return p
}

func (p *RequestParams) WithMessageID(id string) *RequestParams {
	p.MessageId = id
	return p
}

func (p *RequestParams) WithTimeoutSecs(secs int64) *RequestParams {
	p.TimeoutSecs = secs
	return p
}

type pendingRequest struct {
	sink      chan *envelope.Envelope
	createdAt time.Time
}

// RequestSender composes a Producer with a Consumer attached to a
// private reply topic, and a pendingRequests table keyed by
// transactionId.
type RequestSender struct {
	config         *clientconfig.ClientConfig
	consumer       *consumer.Consumer
	producer       *producer.Producer
	logger         contracts.Logger
	replyTopic     string
	defaultTimeout int64
	compression    string

	mu      sync.Mutex
	pending map[string]*pendingRequest
}

// New builds a RequestSender whose private reply topic is
// <clusterId>.<uuid>, using cfg's resolved concurrency limit and
// TimeoutSecs (default 600) as the default per-request await deadline.
// cfg's payloadCompression option, if set, is applied to outgoing
// requests and expected on incoming replies.
func New(cfg *clientconfig.ClientConfig, broker contracts.Broker, logger contracts.Logger) *RequestSender {
	replyTopic := cfg.ClusterId + "." + uuid.NewString()

	consumerCfg := *cfg
	consumerCfg.Topics = []string{replyTopic}

	if logger != nil {
		logger = logger.Named("requestsender")
	}

	compression := cfg.ResolvedPayloadCompression()
	return &RequestSender{
		config:         cfg,
		consumer:       consumer.New(broker, &consumerCfg, logger),
		producer:       producer.New(broker, logger, compression),
		logger:         logger,
		replyTopic:     replyTopic,
		defaultTimeout: cfg.ResolvedTimeoutSecs(),
		compression:    compression,
		pending:        make(map[string]*pendingRequest),
	}
}

// Config returns the ClientConfig this RequestSender was built from.
func (s *RequestSender) Config() *clientconfig.ClientConfig {
	return s.config
}

// ReplyTopic returns the private topic this sender listens on for replies.
func (s *RequestSender) ReplyTopic() string {
	return s.replyTopic
}

// Start subscribes to the private reply topic with handleReply as the
// per-message handler.
func (s *RequestSender) Start(ctx context.Context) error {
	return s.consumer.Start(ctx, func(ctx context.Context, msg *contracts.BrokerMessage) error {
		s.handleReply(ctx, msg)
		return nil
	})
}

// Stop leaves the reply-topic consumer group.
func (s *RequestSender) Stop() error {
	return s.consumer.Stop()
}

func (s *RequestSender) handleReply(ctx context.Context, msg *contracts.BrokerMessage) {
	if len(msg.Body) == 0 {
		return
	}
	body := msg.Body
	if s.compression == brotli.Name {
		plain, err := brotli.Decompress(body)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to decompress reply body", "topic", msg.Topic, "error", err)
			}
			return
		}
		body = plain
	}
	payload := string(body)

	latency := envelope.GetLatency(msg.Timestamp, time.Time{})
	if s.logger != nil {
		s.logger.Info("received message", "payload", payload, "topic", msg.Topic, "latency", envelope.FormatLatency(latency))
	}

	if envelope.IsExpired(latency, s.defaultTimeout) {
		if s.logger != nil {
			s.logger.Warn("ignoring stale reply", "defaultTimeoutSecs", s.defaultTimeout)
		}
		return
	}

	env := envelope.ParseFromString(payload)
	if env == nil {
		if s.logger != nil {
			s.logger.Warn("failed to parse message from kafka payload")
		}
		return
	}

	s.mu.Lock()
	req, ok := s.pending[env.TransactionId]
	if ok {
		delete(s.pending, env.TransactionId)
	}
	s.mu.Unlock()

	if !ok {
		if s.logger != nil {
			s.logger.Warn("ignoring reply for unknown transaction (maybe timed out)", "transactionId", env.TransactionId)
		}
		return
	}

	if s.logger != nil {
		s.logger.Info("request completed", "transactionId", env.TransactionId, "durationMs", time.Since(req.createdAt).Milliseconds())
	}
	req.sink <- env
}

// SendRequestAsync mints a transactionId if params doesn't carry one,
// publishes a REQUEST envelope addressed back to this sender's reply
// topic, and races the reply against a timer for params.TimeoutSecs
// (default the sender's configured default). Whichever fires first
// removes the pending-table entry — the remove operation is the sole
// arbiter between a late reply and a timeout.
func (s *RequestSender) SendRequestAsync(ctx context.Context, params *RequestParams) (*envelope.Envelope, *kerrors.KafkaError) {
	transactionId := params.TransactionId
	if transactionId == "" {
		transactionId = uuid.NewString()
	}

	sink := make(chan *envelope.Envelope, 1)

	s.mu.Lock()
	s.pending[transactionId] = &pendingRequest{sink: sink, createdAt: time.Now()}
	s.mu.Unlock()

	if err := s.sendRequestBase(ctx, params.Topic, params.Uri, transactionId, params.MessageId, params.Data); err != nil {
		s.mu.Lock()
		delete(s.pending, transactionId)
		s.mu.Unlock()
		return nil, err
	}

	timeoutSecs := params.TimeoutSecs
	if timeoutSecs <= 0 {
		timeoutSecs = s.defaultTimeout
	}
	timer := time.NewTimer(time.Duration(timeoutSecs) * time.Second)
	defer timer.Stop()

	select {
	case env := <-sink:
		s.mu.Lock()
		delete(s.pending, transactionId)
		s.mu.Unlock()
		return env, nil
	case <-timer.C:
		s.mu.Lock()
		_, stillPending := s.pending[transactionId]
		delete(s.pending, transactionId)
		s.mu.Unlock()
		if !stillPending {
			// handleReply removed the entry first: the reply won the race.
			return <-sink, nil
		}
		if s.logger != nil {
			s.logger.Error("request timeout", "transactionId", transactionId)
		}
		return nil, kerrors.NewTimeoutError("request " + transactionId + " timeout")
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, transactionId)
		s.mu.Unlock()
		return nil, kerrors.NewTimeoutError("request " + transactionId + " cancelled")
	}
}

// SendRequestAcknowledge builds the same REQUEST envelope as
// SendRequestAsync but with no responseDestination, publishes it, and
// returns as soon as the broker acknowledges — no pending-table entry is
// registered since no reply is expected.
func (s *RequestSender) SendRequestAcknowledge(ctx context.Context, params *RequestParams) *kerrors.KafkaError {
	transactionId := params.TransactionId
	if transactionId == "" {
		transactionId = uuid.NewString()
	}

	raw, err := json.Marshal(params.Data)
	if err != nil {
		return kerrors.NewSerializationError(err.Error())
	}

	env := &envelope.Envelope{
		MessageType:   envelope.Request,
		SourceId:      s.config.ClusterId,
		TransactionId: transactionId,
		MessageId:     params.MessageId,
		Uri:           params.Uri,
		Data:          raw,
	}

	return s.producer.Send(ctx, env, params.Topic)
}

func (s *RequestSender) sendRequestBase(ctx context.Context, topic, uri, transactionId, messageId string, data any) *kerrors.KafkaError {
	raw, err := json.Marshal(data)
	if err != nil {
		return kerrors.NewSerializationError(err.Error())
	}

	env := &envelope.Envelope{
		MessageType:   envelope.Request,
		SourceId:      s.config.ClusterId,
		TransactionId: transactionId,
		MessageId:     messageId,
		Uri:           uri,
		ResponseDestination: &envelope.ResponseDestination{
			Topic: s.replyTopic,
			Uri:   replyUri,
		},
		Data: raw,
	}

	return s.producer.Send(ctx, env, topic)
}

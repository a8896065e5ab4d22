package streamhandler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/madcok-co/streamrpc/contrib/broker/memory"
	"github.com/madcok-co/streamrpc/contrib/codec/brotli"
	"github.com/madcok-co/streamrpc/core/pkg/clientconfig"
	"github.com/madcok-co/streamrpc/core/pkg/contracts"
	"github.com/madcok-co/streamrpc/core/pkg/envelope"
	"github.com/madcok-co/streamrpc/core/pkg/kerrors"
	"github.com/madcok-co/streamrpc/core/pkg/registry"
)

func setup(t *testing.T, routes *registry.RouteRegistry) (*StreamHandler, *memory.Broker, chan *contracts.BrokerMessage) {
	t.Helper()

	broker := memory.New()
	ctx := context.Background()
	if err := broker.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	replies := make(chan *contracts.BrokerMessage, 4)
	if err := broker.Subscribe(ctx, "reply-topic", func(ctx context.Context, msg *contracts.BrokerMessage) error {
		replies <- msg
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	cfg := clientconfig.New("svc", "localhost:9092")
	h := New(cfg, broker, routes, nil)

	if err := h.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return h, broker, replies
}

func publishRequest(t *testing.T, broker *memory.Broker, uri, transactionId string, dest *envelope.ResponseDestination, data any) {
	t.Helper()
	raw, _ := json.Marshal(data)
	reqType := envelope.Request
	env := &envelope.Envelope{
		MessageType:         reqType,
		TransactionId:       transactionId,
		MessageId:           "mid-1",
		Uri:                 uri,
		ResponseDestination: dest,
		Data:                raw,
	}
	body, _ := json.Marshal(env)
	if err := broker.Publish(context.Background(), "svc", contracts.NewBrokerMessage("svc", body)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestHappyPathRPC(t *testing.T) {
	routes := registry.New()
	routes.Register("/echo", func(env *envelope.Envelope) (registry.HandlerResult, *kerrors.KafkaError) {
		var parsed map[string]any
		_ = json.Unmarshal(env.Data, &parsed)
		return registry.Response(map[string]any{"echo": parsed}), nil
	})

	_, broker, replies := setup(t, routes)
	dest := &envelope.ResponseDestination{Topic: "reply-topic", Uri: "REQUEST_RESPONSE"}
	publishRequest(t, broker, "/echo", "tx-1", dest, map[string]any{"n": 42})

	select {
	case msg := <-replies:
		var reply envelope.Envelope
		if err := json.Unmarshal(msg.Body, &reply); err != nil {
			t.Fatalf("decode reply: %v", err)
		}
		if reply.TransactionId != "tx-1" {
			t.Errorf("transactionId = %q, want tx-1", reply.TransactionId)
		}
		if reply.MessageType != envelope.Response {
			t.Errorf("messageType = %q, want RESPONSE", reply.MessageType)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

func TestUriNotFound(t *testing.T) {
	routes := registry.New()
	routes.Register("/foo", func(env *envelope.Envelope) (registry.HandlerResult, *kerrors.KafkaError) {
		return registry.Acknowledge, nil
	})

	_, broker, replies := setup(t, routes)
	dest := &envelope.ResponseDestination{Topic: "reply-topic", Uri: "REQUEST_RESPONSE"}
	publishRequest(t, broker, "/bar", "tx-2", dest, nil)

	select {
	case msg := <-replies:
		var reply envelope.Envelope
		_ = json.Unmarshal(msg.Body, &reply)
		var resp kerrors.Response
		if err := json.Unmarshal(reply.Data, &resp); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if resp.Status == nil || resp.Status.Code != kerrors.CodeUriNotFound {
			t.Errorf("status = %+v, want URI_NOT_FOUND", resp.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

func TestFireAndForgetNoResponsePublished(t *testing.T) {
	routes := registry.New()
	routes.Register("/x", func(env *envelope.Envelope) (registry.HandlerResult, *kerrors.KafkaError) {
		return registry.Response("ignored"), nil
	})

	_, broker, replies := setup(t, routes)
	publishRequest(t, broker, "/x", "tx-3", nil, nil)

	select {
	case <-replies:
		t.Fatal("unexpected reply for fire-and-forget request")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestHandlerError(t *testing.T) {
	routes := registry.New()
	routes.Register("/boom", func(env *envelope.Envelope) (registry.HandlerResult, *kerrors.KafkaError) {
		return registry.HandlerResult{}, kerrors.NewInternalServerError("boom")
	})

	_, broker, replies := setup(t, routes)
	dest := &envelope.ResponseDestination{Topic: "reply-topic", Uri: "REQUEST_RESPONSE"}
	publishRequest(t, broker, "/boom", "tx-4", dest, nil)

	select {
	case msg := <-replies:
		var reply envelope.Envelope
		_ = json.Unmarshal(msg.Body, &reply)
		var resp kerrors.Response
		_ = json.Unmarshal(reply.Data, &resp)
		if resp.Status == nil || resp.Status.Code != kerrors.CodeInternalServerError {
			t.Errorf("status = %+v, want INTERNAL_SERVER_ERROR", resp.Status)
		}
		if resp.Status.Message != "Internal Server Error: boom" {
			t.Errorf("message = %q", resp.Status.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

func TestCompressedPayloadRoundTrip(t *testing.T) {
	routes := registry.New()
	routes.Register("/echo", func(env *envelope.Envelope) (registry.HandlerResult, *kerrors.KafkaError) {
		var parsed map[string]any
		_ = json.Unmarshal(env.Data, &parsed)
		return registry.Response(map[string]any{"echo": parsed}), nil
	})

	broker := memory.New()
	ctx := context.Background()
	if err := broker.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	replies := make(chan *contracts.BrokerMessage, 1)
	if err := broker.Subscribe(ctx, "reply-topic", func(ctx context.Context, msg *contracts.BrokerMessage) error {
		replies <- msg
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	cfg := clientconfig.New("svc", "localhost:9092").Set("payloadCompression", brotli.Name)
	h := New(cfg, broker, routes, nil)
	if err := h.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	raw, _ := json.Marshal(map[string]any{"n": 42})
	reqType := envelope.Request
	env := &envelope.Envelope{
		MessageType:         reqType,
		TransactionId:       "tx-5",
		MessageId:           "mid-5",
		Uri:                 "/echo",
		ResponseDestination: &envelope.ResponseDestination{Topic: "reply-topic", Uri: "REQUEST_RESPONSE"},
		Data:                raw,
	}
	plain, _ := json.Marshal(env)
	compressed, err := brotli.Compress(plain)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if err := broker.Publish(ctx, "svc", contracts.NewBrokerMessage("svc", compressed)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-replies:
		decompressed, err := brotli.Decompress(msg.Body)
		if err != nil {
			t.Fatalf("Decompress reply: %v", err)
		}
		var reply envelope.Envelope
		if err := json.Unmarshal(decompressed, &reply); err != nil {
			t.Fatalf("decode reply: %v", err)
		}
		if reply.TransactionId != "tx-5" {
			t.Errorf("transactionId = %q, want tx-5", reply.TransactionId)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

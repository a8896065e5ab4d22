package registry

import (
	"testing"

	"github.com/madcok-co/streamrpc/core/pkg/envelope"
	"github.com/madcok-co/streamrpc/core/pkg/kerrors"
)

func echoHandler(env *envelope.Envelope) (HandlerResult, *kerrors.KafkaError) {
	return Response(map[string]any{"echo": env.Uri}), nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()

	if r.HasHandler("/echo") {
		t.Fatal("expected no handler before registration")
	}

	r.Register("/echo", echoHandler)

	if !r.HasHandler("/echo") {
		t.Fatal("expected handler after registration")
	}
	if r.GetHandler("/missing") != nil {
		t.Fatal("expected nil handler for unregistered uri")
	}
	if r.GetHandler("/echo") == nil {
		t.Fatal("expected handler for registered uri")
	}
}

func TestRegisterOverwrites(t *testing.T) {
	r := New()
	r.Register("/echo", echoHandler)
	r.Register("/echo", func(env *envelope.Envelope) (HandlerResult, *kerrors.KafkaError) {
		return Acknowledge, nil
	})

	result, err := r.GetHandler("/echo")(&envelope.Envelope{Uri: "/echo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsAcknowledge() {
		t.Fatal("expected overwritten handler to win")
	}
}

func TestRegisteredUris(t *testing.T) {
	r := NewWithRoutes(map[string]Handler{
		"/a": echoHandler,
		"/b": echoHandler,
	})

	uris := r.RegisteredUris()
	if len(uris) != 2 {
		t.Fatalf("RegisteredUris() = %v, want 2 entries", uris)
	}
}

func TestHandlerResultPayload(t *testing.T) {
	result := Response("hello")
	if result.IsAcknowledge() {
		t.Fatal("Response() should not be Acknowledge")
	}
	if result.Payload() != "hello" {
		t.Errorf("Payload() = %v", result.Payload())
	}
}

package consumer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/madcok-co/streamrpc/contrib/broker/memory"
	"github.com/madcok-co/streamrpc/core/pkg/clientconfig"
	"github.com/madcok-co/streamrpc/core/pkg/contracts"
)

func TestStartDispatchesMessages(t *testing.T) {
	broker := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := broker.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	cfg := clientconfig.New("orders", "localhost:9092")
	c := New(broker, cfg, nil)

	var handled int32
	done := make(chan struct{}, 1)

	err := c.Start(ctx, func(ctx context.Context, msg *contracts.BrokerMessage) error {
		atomic.AddInt32(&handled, 1)
		done <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := broker.Publish(ctx, "orders", contracts.NewBrokerMessage("orders", []byte("hello"))); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	if atomic.LoadInt32(&handled) != 1 {
		t.Errorf("handled = %d, want 1", handled)
	}
}

func TestConcurrencyLimitBoundsInFlight(t *testing.T) {
	broker := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := broker.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	cfg := clientconfig.New("orders", "localhost:9092")
	cfg.ConcurrencyLimit = 2

	c := New(broker, cfg, nil)

	var inFlight int32
	var maxSeen int32
	release := make(chan struct{})

	err := c.Start(ctx, func(ctx context.Context, msg *contracts.BrokerMessage) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 5; i++ {
		_ = broker.Publish(ctx, "orders", contracts.NewBrokerMessage("orders", []byte("m")))
	}

	time.Sleep(200 * time.Millisecond)
	if got := atomic.LoadInt32(&maxSeen); got > 2 {
		t.Errorf("max concurrent handlers = %d, want <= 2", got)
	}
	close(release)
}

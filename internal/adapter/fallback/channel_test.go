package fallback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agora-gov/agora/internal/adapter/inproc"
	"github.com/agora-gov/agora/internal/port/eventchannel"
)

// flakyChannel simulates a broker that is reachable but failing.
type flakyChannel struct {
	connected  bool
	publishErr error

	mu        sync.Mutex
	published int
}

func (f *flakyChannel) Publish(context.Context, string, []byte) error {
	f.mu.Lock()
	f.published++
	f.mu.Unlock()
	return f.publishErr
}

func (f *flakyChannel) Subscribe(context.Context, string, eventchannel.Handler) (func(), error) {
	return func() {}, nil
}

func (f *flakyChannel) Close() error      { return nil }
func (f *flakyChannel) IsConnected() bool { return f.connected }

func (f *flakyChannel) publishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published
}

func TestPublishFallsBackWhenBrokerFails(t *testing.T) {
	local := inproc.New()
	defer local.Close()
	broker := &flakyChannel{connected: true, publishErr: errors.New("broker down")}
	c := New(broker, local)

	received := make(chan []byte, 1)
	if _, err := local.Subscribe(context.Background(), "s", func(_ context.Context, _ string, data []byte) error {
		received <- data
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := c.Publish(context.Background(), "s", []byte("vote")); err != nil {
		t.Fatalf("fallback publish must not surface broker error, got %v", err)
	}

	select {
	case data := <-received:
		if string(data) != "vote" {
			t.Fatalf("unexpected payload %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message never delivered locally")
	}

	if broker.publishCount() != 1 {
		t.Errorf("broker should have been tried once, got %d", broker.publishCount())
	}
}

func TestPublishSkipsDisconnectedBroker(t *testing.T) {
	local := inproc.New()
	defer local.Close()
	broker := &flakyChannel{connected: false}
	c := New(broker, local)

	if err := c.Publish(context.Background(), "s", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if broker.publishCount() != 0 {
		t.Errorf("disconnected broker should not be tried, got %d publishes", broker.publishCount())
	}
}

func TestNilPrimaryIsLocalOnly(t *testing.T) {
	local := inproc.New()
	defer local.Close()
	c := New(nil, local)

	if c.IsConnected() {
		t.Error("broker-less channel must report not connected")
	}

	received := make(chan struct{}, 1)
	cancel, err := c.Subscribe(context.Background(), "s", func(context.Context, string, []byte) error {
		received <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	if err := c.Publish(context.Background(), "s", []byte("x")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("local delivery failed without broker")
	}
}

func TestIsConnectedReflectsBroker(t *testing.T) {
	local := inproc.New()
	defer local.Close()

	if New(&flakyChannel{connected: true}, local).IsConnected() != true {
		t.Error("expected connected with healthy broker")
	}
	if New(&flakyChannel{connected: false}, local).IsConnected() != false {
		t.Error("expected not connected with unreachable broker")
	}
}

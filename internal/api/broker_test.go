package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	topic := "t1"
	ch := b.Subscribe(topic)

	evt := SSEEvent{Type: "test.event", Data: map[string]any{"x": 1}}
	b.Publish(topic, evt)
	b.Publish("other", SSEEvent{Type: "ignored"})

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["x"].(int) != 1 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(topic, ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// second unsubscribe is a no-op
	b.Unsubscribe(topic, ch)
}

func TestBrokerDropsForSlowConsumer(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("t")
	for i := 0; i < 20; i++ {
		b.Publish("t", SSEEvent{Type: "e"})
	}
	assert.Equal(t, cap(ch), len(ch))
}

func TestRedisBroker(t *testing.T) {
	mr := miniredis.RunT(t)
	b := NewRedisBrokerClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	var _ EventBroker = b

	ch := b.Subscribe("t_demo")
	b.Publish("t_demo", SSEEvent{Type: "route.optimized", Data: map[string]any{"stops": 3}})

	select {
	case got := <-ch:
		assert.Equal(t, "route.optimized", got.Type)
		assert.EqualValues(t, 3, got.Data["stops"])
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}

	b.Unsubscribe("t_demo", ch)
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

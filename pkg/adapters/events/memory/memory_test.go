package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/dapo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus()
	ctx := context.Background()

	var mu sync.Mutex
	var got []domain.Event
	err := bus.Subscribe(ctx, "pipeline.events", func(ctx context.Context, e domain.Event) error {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	event := domain.Event{ID: "e1", Type: domain.EventTypePipelineStarted, PipelineID: "p1"}
	require.NoError(t, bus.Publish(ctx, "pipeline.events", event))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})
	mu.Lock()
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "p1", got[0].PipelineID)
	mu.Unlock()
}

func TestPublishIgnoresOtherTopics(t *testing.T) {
	bus := NewInMemoryEventBus()
	ctx := context.Background()

	called := make(chan struct{}, 1)
	require.NoError(t, bus.Subscribe(ctx, "other.topic", func(ctx context.Context, e domain.Event) error {
		called <- struct{}{}
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, "pipeline.events", domain.Event{ID: "e1"}))

	select {
	case <-called:
		t.Fatal("handler on another topic was invoked")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeContextCancelRemovesHandler(t *testing.T) {
	bus := NewInMemoryEventBus()
	subCtx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	count := 0
	require.NoError(t, bus.Subscribe(subCtx, "pipeline.events", func(ctx context.Context, e domain.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	cancel()
	waitFor(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers["pipeline.events"]) == 0
	})

	require.NoError(t, bus.Publish(context.Background(), "pipeline.events", domain.Event{ID: "e1"}))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 0, count)
	mu.Unlock()
}

func TestUnsubscribeDropsTopic(t *testing.T) {
	bus := NewInMemoryEventBus()
	ctx := context.Background()

	require.NoError(t, bus.Subscribe(ctx, "pipeline.events", func(ctx context.Context, e domain.Event) error {
		return nil
	}))
	require.NoError(t, bus.Unsubscribe(ctx, "pipeline.events"))

	bus.mu.RLock()
	defer bus.mu.RUnlock()
	assert.Empty(t, bus.subscribers["pipeline.events"])
}

package feed

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldStream/internal/model"
)

func TestHub_FanOut(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe(4)
	b, cancelB := h.Subscribe(4)
	defer cancelA()
	defer cancelB()

	h.Publish(model.StreamUpdate{StreamID: 1})
	h.Publish(model.StreamUpdate{StreamID: 2})

	for _, ch := range []<-chan model.StreamUpdate{a, b} {
		assert.Equal(t, uint64(1), (<-ch).StreamID)
		assert.Equal(t, uint64(2), (<-ch).StreamID)
	}
	assert.Equal(t, 2, h.Subscribers())
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.Publish(model.StreamUpdate{StreamID: 1})
	h.Publish(model.StreamUpdate{StreamID: 2})
	h.Publish(model.StreamUpdate{StreamID: 3})

	assert.Equal(t, uint64(1), (<-ch).StreamID)
	assert.Equal(t, uint64(2), h.Dropped())
}

func TestHub_CancelClosesAndIsIdempotent(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, h.Subscribers())

	// Publishing with no subscribers is a no-op.
	h.Publish(model.StreamUpdate{StreamID: 9})
}

func TestHub_ConcurrentPublishAndCancel(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		ch, cancel := h.Subscribe(16)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range ch {
			}
		}()
		defer cancel()
		go func(i int) {
			for j := 0; j < 100; j++ {
				h.Publish(model.StreamUpdate{StreamID: uint64(i*100 + j)})
			}
		}(i)
	}
	require.Equal(t, 8, h.Subscribers())
	// Deferred cancels close every channel so the readers exit.
	t.Cleanup(wg.Wait)
}

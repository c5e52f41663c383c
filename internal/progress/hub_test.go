package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_FanOut(t *testing.T) {
	hub := NewHub(4)
	a, cancelA := hub.Subscribe()
	defer cancelA()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	hub.Publish(Event{Kind: KindDigest, Stage: "attempting"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, "attempting", ev.Stage)
			assert.False(t, ev.Time.IsZero())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(1)
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.PageFetched(i*500, 500, (i+1)*500)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestHub_CancelUnsubscribesAndCloses(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	require.Equal(t, 1, hub.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, hub.Subscribers())

	_, open := <-ch
	assert.False(t, open)

	hub.Publish(Event{Kind: KindFetch})
}

func TestHub_PageFetched(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.PageFetched(1000, 137, 1137)
	ev := <-ch
	assert.Equal(t, KindFetch, ev.Kind)
	assert.Equal(t, 1137, ev.Current)
	assert.Equal(t, "offset 1000: 137 items", ev.Message)
}

package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	a, cancelA := hub.Subscribe()
	defer cancelA()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	hub.Publish(Event{Type: TypeCustomerMessage, Text: "hello"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case got := <-ch:
			assert.Equal(t, "hello", got.Text)
			assert.False(t, got.At.IsZero(), "publish stamps the time")
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	ch, cancel := hub.Subscribe()
	defer cancel()

	// Overflow the buffer without draining. Publish must drop, not stall.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(Event{Type: TypeOperatorReply, Text: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.NotEmpty(t, ch)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	ch, cancel := hub.Subscribe()
	cancel()
	cancel() // safe to call twice

	hub.Publish(Event{Type: TypeCustomerMessage, Text: "late"})

	_, open := <-ch
	require.False(t, open, "channel closed after unsubscribe")
}

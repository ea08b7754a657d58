package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_PublishSubscribe(t *testing.T) {
	b := NewBroadcaster(4)
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	u := Update{Timestamp: time.Now(), Kind: KindStatus, Data: "hello"}
	b.Publish(u)

	assert.Equal(t, u, <-ch1)
	assert.Equal(t, u, <-ch2)
}

func TestBroadcaster_DropsSlowConsumer(t *testing.T) {
	b := NewBroadcaster(1)
	ch := b.Subscribe()

	b.Publish(Update{Kind: KindCash})
	b.Publish(Update{Kind: KindHoldings})

	got := <-ch
	assert.Equal(t, KindCash, got.Kind)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected update %v", extra)
	default:
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster(0)
	ch := b.Subscribe()
	b.Unsubscribe(ch)

	_, ok := <-ch
	require.False(t, ok)

	// double unsubscribe is harmless
	b.Unsubscribe(ch)
	b.Publish(Update{Kind: KindBusy})
}

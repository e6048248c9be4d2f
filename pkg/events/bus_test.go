package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessBus_DeliversToSubscriber(t *testing.T) {
	bus := NewInProcessBus(nil)
	sub := bus.Subscribe()

	bus.Publish(context.Background(), ProviderRestart("embedding", "ollama"))

	select {
	case evt := <-sub:
		assert.Equal(t, KindProviderRestart, evt.Kind)
		assert.Equal(t, "ollama", evt.ProviderID)
	case <-time.After(time.Second):
		t.Fatal("expected event delivery")
	}
}

func TestInProcessBus_FansOutToAllSubscribers(t *testing.T) {
	bus := NewInProcessBus(nil)
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(context.Background(), Respawn())

	for _, ch := range []<-chan SystemEvent{a, b} {
		select {
		case evt := <-ch:
			assert.Equal(t, KindRespawn, evt.Kind)
		case <-time.After(time.Second):
			t.Fatal("expected delivery to every subscriber")
		}
	}
}

func TestInProcessBus_FullSubscriberNeverBlocksPublisher(t *testing.T) {
	bus := NewInProcessBus(nil)
	_ = bus.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < busCapacity+10; i++ {
			bus.Publish(context.Background(), SubsystemHealthCheck("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}
}

func TestInProcessBus_NilLoggerDoesNotPanic(t *testing.T) {
	bus := NewInProcessBus(nil)
	require.NotPanics(t, func() {
		bus.Publish(context.Background(), Respawn())
	})
}

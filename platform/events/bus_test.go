package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadflow_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }

func TestPublishSyncReturnsHandlerError(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	want := errors.New("handler failed")
	bus.Subscribe("test.event", func(_ context.Context, _ Event) error {
		return want
	})

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, want) {
		t.Fatalf("PublishSync error = %v, want %v", err, want)
	}
}

func TestPublishSyncRecoversPanic(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	bus.Subscribe("test.event", func(_ context.Context, _ Event) error {
		panic("boom")
	})

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if err == nil {
		t.Fatal("expected an error from a panicking handler")
	}
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		bus.Subscribe("test.event", func(_ context.Context, _ Event) error {
			wg.Done()
			return nil
		})
	}

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not run within 2s")
	}
}

func TestPublishIgnoresOtherEvents(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	called := false
	bus.Subscribe("other.event", func(_ context.Context, _ Event) error {
		called = true
		return nil
	})

	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()}); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("handler for a different event name should not run")
	}
}

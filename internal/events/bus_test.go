package events

import (
	"context"
	"testing"
)

func TestPublishDeliversInOrder(t *testing.T) {
	bus := NewBus(nil)
	var got []string
	bus.Subscribe(TopicStockUpdated, func(context.Context) { got = append(got, "first") })
	bus.Subscribe(TopicStockUpdated, func(context.Context) { got = append(got, "second") })
	bus.Subscribe("other", func(context.Context) { got = append(got, "other") })

	bus.Publish(context.Background(), TopicStockUpdated)

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("unexpected delivery %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	cancel := bus.Subscribe(TopicStockUpdated, func(context.Context) { calls++ })
	cancel()
	bus.Publish(context.Background(), TopicStockUpdated)
	if calls != 0 {
		t.Fatalf("handler ran after unsubscribe")
	}
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(nil)
	reached := false
	bus.Subscribe(TopicStockUpdated, func(context.Context) { panic("boom") })
	bus.Subscribe(TopicStockUpdated, func(context.Context) { reached = true })

	bus.Publish(context.Background(), TopicStockUpdated)

	if !reached {
		t.Fatalf("second handler was skipped")
	}
}

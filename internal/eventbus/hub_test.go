package eventbus

import (
	"context"
	"testing"
	"time"
)

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := hub.Subscribe(ctx, 4)
	hub.Publish(Event{Type: EventSyncCompleted, Data: map[string]any{"upserted_records": 3}})

	select {
	case evt := <-ch:
		if evt.Type != EventSyncCompleted {
			t.Fatalf("type=%q, want %q", evt.Type, EventSyncCompleted)
		}
		if evt.Timestamp == 0 {
			t.Fatalf("timestamp 应自动填充")
		}
	case <-time.After(time.Second):
		t.Fatalf("未收到事件")
	}
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := hub.Subscribe(ctx, 1)
	hub.Publish(Event{Type: EventSyncStarted})
	hub.Publish(Event{Type: EventSyncCompleted}) // 缓冲已满，丢弃

	first := <-ch
	if first.Type != EventSyncStarted {
		t.Fatalf("type=%q, want %q", first.Type, EventSyncStarted)
	}
	select {
	case evt := <-ch:
		t.Fatalf("慢消费者应丢事件，收到 %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnsubscribeOnContextCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	hub.Subscribe(ctx, 1)
	if hub.SubscriberCount() != 1 {
		t.Fatalf("count=%d, want 1", hub.SubscriberCount())
	}

	cancel()
	deadline := time.After(time.Second)
	for hub.SubscriberCount() != 0 {
		select {
		case <-deadline:
			t.Fatalf("取消后订阅应被清理")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHub_NilSafePublish(t *testing.T) {
	var hub *Hub
	hub.Publish(Event{Type: EventSyncFailed}) // 不应 panic
	if hub.SubscriberCount() != 0 {
		t.Fatalf("nil hub count 应为 0")
	}
}

package collector

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRemoteCollector_ImmediateFirstSync(t *testing.T) {
	var calls atomic.Int32
	c := NewRemoteCollector(SyncerFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}), &RemoteCollectorConfig{IntervalSec: 3600})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	deadline := time.After(2 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("启动后应立即执行一次同步")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if !c.Running() {
		t.Fatalf("Running()=false, want true")
	}
}

func TestRemoteCollector_StopIsIdempotent(t *testing.T) {
	c := NewRemoteCollector(SyncerFunc(func(context.Context) error { return nil }),
		&RemoteCollectorConfig{IntervalSec: 3600})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("重复 Stop: %v", err)
	}
	if c.Running() {
		t.Fatalf("Running()=true after Stop")
	}
}

func TestRemoteCollector_ContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewRemoteCollector(SyncerFunc(func(context.Context) error { return nil }),
		&RemoteCollectorConfig{IntervalSec: 3600})

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for c.Running() {
		select {
		case <-deadline:
			t.Fatalf("上下文取消后循环应退出")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRemoteCollector_SyncErrorDoesNotStopLoop(t *testing.T) {
	var calls atomic.Int32
	c := NewRemoteCollector(SyncerFunc(func(context.Context) error {
		calls.Add(1)
		return context.DeadlineExceeded
	}), &RemoteCollectorConfig{IntervalSec: 3600})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	deadline := time.After(2 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("同步失败不应阻止首次执行")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if !c.Running() {
		t.Fatalf("同步失败后循环应继续运行")
	}
}

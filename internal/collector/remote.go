package collector

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Syncer 单次同步能力（由 service.SyncService 适配）
type Syncer interface {
	SyncOnce(ctx context.Context) error
}

// SyncerFunc 函数适配器
type SyncerFunc func(ctx context.Context) error

func (f SyncerFunc) SyncOnce(ctx context.Context) error { return f(ctx) }

// RemoteCollector 周期性触发远端同步：启动后立即执行一次，
// 之后按配置间隔加随机抖动循环。同步失败只记录，下个周期照常重试。
type RemoteCollector struct {
	syncer   Syncer
	interval time.Duration
	jitter   time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	running  bool
	mu       sync.Mutex
}

// RemoteCollectorConfig 配置
type RemoteCollectorConfig struct {
	IntervalSec int // 同步间隔（秒）
	JitterSec   int // 随机抖动上限（秒），0 取间隔的 1/10
}

// NewRemoteCollector 创建远端同步采集器
func NewRemoteCollector(syncer Syncer, cfg *RemoteCollectorConfig) *RemoteCollector {
	if cfg == nil {
		cfg = &RemoteCollectorConfig{}
	}
	if cfg.IntervalSec <= 0 {
		cfg.IntervalSec = 300
	}
	if cfg.JitterSec <= 0 {
		cfg.JitterSec = cfg.IntervalSec / 10
	}

	return &RemoteCollector{
		syncer:   syncer,
		interval: time.Duration(cfg.IntervalSec) * time.Second,
		jitter:   time.Duration(cfg.JitterSec) * time.Second,
		stopChan: make(chan struct{}),
	}
}

// Start 启动同步循环
func (c *RemoteCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	slog.Info("远端同步循环启动", "interval", c.interval)
	go c.loop(ctx)
	return nil
}

// Stop 停止同步循环（可重复调用）
func (c *RemoteCollector) Stop() error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(c.stopChan)
		slog.Info("远端同步循环已停止")
	})
	return nil
}

// Running 是否在运行
func (c *RemoteCollector) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *RemoteCollector) loop(ctx context.Context) {
	c.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return
		case <-c.stopChan:
			return
		case <-time.After(c.nextDelay()):
			c.runOnce(ctx)
		}
	}
}

// nextDelay 间隔加抖动，错开多实例同时打到平台 API
func (c *RemoteCollector) nextDelay() time.Duration {
	if c.jitter <= 0 {
		return c.interval
	}
	return c.interval + time.Duration(rand.Int63n(int64(c.jitter)))
}

func (c *RemoteCollector) runOnce(ctx context.Context) {
	if err := c.syncer.SyncOnce(ctx); err != nil {
		slog.Warn("周期同步失败", "error", err)
	}
}

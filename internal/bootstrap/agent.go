package bootstrap

import (
	"context"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/collector"
)

// AgentRuntime 在 Core 之上挂载 Agent 二进制独有的后台任务
type AgentRuntime struct {
	*Core
	Collector *collector.RemoteCollector
	StartedAt time.Time
}

// NewAgentRuntime 构建 Agent 运行时并启动同步循环
func NewAgentRuntime(ctx context.Context, cfgPath string) (*AgentRuntime, error) {
	core, err := NewCore(cfgPath)
	if err != nil {
		return nil, err
	}

	rt := &AgentRuntime{Core: core, StartedAt: time.Now()}

	if core.DB != nil && core.DB.SafeMode {
		// 安全模式：API 仍可启动并导出诊断信息，但不启动任何写库链路。
		// 具体原因由 /api/status 展示，避免"沉默失败"。
		return rt, nil
	}

	rt.Collector = collector.NewRemoteCollector(
		collector.SyncerFunc(func(ctx context.Context) error {
			_, err := core.Services.Sync.SyncOnce(ctx)
			return err
		}),
		&collector.RemoteCollectorConfig{IntervalSec: core.Cfg.Sync.IntervalSec},
	)
	if err := rt.Collector.Start(ctx); err != nil {
		_ = core.Close()
		return nil, err
	}

	return rt, nil
}

// Close 停止后台任务并释放核心资源
func (rt *AgentRuntime) Close() error {
	if rt == nil {
		return nil
	}
	if rt.Collector != nil {
		_ = rt.Collector.Stop()
	}
	return rt.Core.Close()
}

package observability

import (
	"context"
	"errors"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/bootstrap"
	"github.com/muxin-dev/SoulPulse/internal/dto"
	"github.com/muxin-dev/SoulPulse/internal/pkg/buildinfo"
)

var ErrNotReady = errors.New("runtime 未就绪")

// BuildStatus 汇总运行状态：应用信息、存储健康、同步状态、记忆开关。
// 同步侧的最近错误原样透出，让消费端能区分"没有数据"与"同步失败"。
func BuildStatus(ctx context.Context, rt *bootstrap.AgentRuntime) (*dto.StatusDTO, error) {
	if rt == nil || rt.Cfg == nil {
		return nil, ErrNotReady
	}

	status := &dto.StatusDTO{
		App: dto.AppStatusDTO{
			Name:      rt.Cfg.App.Name,
			Version:   buildinfo.Version,
			Commit:    buildinfo.Commit,
			StartedAt: rt.StartedAt.Format(time.RFC3339),
			UptimeSec: int64(time.Since(rt.StartedAt).Seconds()),
		},
		Storage: dto.StorageStatusDTO{
			DBPath: rt.Cfg.Storage.DBPath,
		},
		Memory: dto.MemoryStatusDTO{
			Enabled: rt.Services.Memory.Enabled(),
		},
	}

	if rt.DB != nil {
		status.Storage.SchemaVersion = rt.DB.SchemaVersion
		status.Storage.SafeMode = rt.DB.SafeMode
		status.Storage.SafeModeReason = rt.DB.MigrationError
	}

	if rt.Repos.Record != nil {
		if count, err := rt.Repos.Record.Count(ctx); err == nil {
			status.Storage.RecordCount = count
		}
		now := time.Now()
		start30d := now.AddDate(0, 0, -30).UnixMilli()
		if count, err := rt.Repos.Record.CountByTimeRange(ctx, start30d, now.UnixMilli()); err == nil {
			status.Storage.RecordCount30d = count
		}
		if last, err := rt.Repos.Record.GetLastCreatedAt(ctx); err == nil {
			status.Storage.LastRecordAt = last
		}
	}

	if rt.Services.Sync != nil {
		stats := rt.Services.Sync.Stats()
		status.Sync = dto.SyncStatusDTO{
			Configured:   rt.Clients.Platform.IsConfigured(),
			Running:      rt.Collector != nil && rt.Collector.Running(),
			IntervalSec:  rt.Cfg.Sync.IntervalSec,
			SyncRuns:     stats.SyncRuns,
			SyncErrors:   stats.SyncErrors,
			LastSyncAt:   stats.LastSyncAt,
			LastErrorAt:  stats.LastErrorAt,
			LastErrorMsg: stats.LastErrorMsg,
			LastRunID:    stats.LastRunID,
		}
	}

	return status, nil
}

package observability

import (
	"context"
	"os"
	"regexp"

	"github.com/muxin-dev/SoulPulse/internal/bootstrap"
	"github.com/muxin-dev/SoulPulse/internal/dto"
)

// DiagnosticsDTO 诊断包：状态快照加脱敏后的运行参数
type DiagnosticsDTO struct {
	Status      *dto.StatusDTO `json:"status"`
	DBSizeBytes int64          `json:"db_size_bytes"`
	Config      map[string]any `json:"config"`
	Subscribers int            `json:"sse_subscribers"`
}

var tokenPattern = regexp.MustCompile(`^(.{4}).+$`)

// BuildDiagnostics 组装诊断信息。凭证一律脱敏，只保留前缀
func BuildDiagnostics(ctx context.Context, rt *bootstrap.AgentRuntime) (*DiagnosticsDTO, error) {
	status, err := BuildStatus(ctx, rt)
	if err != nil {
		return nil, err
	}

	diag := &DiagnosticsDTO{
		Status:      status,
		Subscribers: rt.Hub.SubscriberCount(),
		Config: map[string]any{
			"platform.base_url":   rt.Cfg.Platform.BaseURL,
			"platform.api_token":  redactSecret(rt.Cfg.Platform.APIToken),
			"platform.page_size":  rt.Cfg.Platform.PageSize,
			"sync.interval_sec":   rt.Cfg.Sync.IntervalSec,
			"sync.lookback_hours": rt.Cfg.Sync.LookbackHours,
			"sync.retain_days":    rt.Cfg.Sync.RetainDays,
			"server.listen":       rt.Cfg.Server.Listen,
			"memory.enabled":      rt.Cfg.Memory.Enabled,
			"memory.api_key":      redactSecret(rt.Cfg.Memory.APIKey),
			"memory.base_url":     rt.Cfg.Memory.BaseURL,
			"storage.db_path":     rt.Cfg.Storage.DBPath,
			"storage.memory_path": rt.Cfg.Storage.MemoryPath,
		},
	}

	if info, err := os.Stat(rt.Cfg.Storage.DBPath); err == nil {
		diag.DBSizeBytes = info.Size()
	}

	return diag, nil
}

// redactSecret 凭证脱敏：保留前 4 位便于核对，其余抹掉
func redactSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return tokenPattern.ReplaceAllString(s, "$1****")
}

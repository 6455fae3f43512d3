package service

import (
	"context"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/platform"
	"github.com/muxin-dev/SoulPulse/internal/repository"
	"github.com/muxin-dev/SoulPulse/internal/schema"
)

// 仓储/外部依赖的最小接口集合（ISP）

type RecordRepository interface {
	UpsertBatch(ctx context.Context, records []schema.SessionRecord) (int, error)
	GetSince(ctx context.Context, sinceMs int64) ([]schema.SessionRecord, error)
	GetByTimeRange(ctx context.Context, startMs, endMs int64) ([]schema.SessionRecord, error)
	GetByDate(ctx context.Context, date string) ([]schema.SessionRecord, error)
	GetRecent(ctx context.Context, limit int) ([]schema.SessionRecord, error)
	Count(ctx context.Context) (int64, error)
	CountByTimeRange(ctx context.Context, startMs, endMs int64) (int64, error)
	GetLastCreatedAt(ctx context.Context) (int64, error)
	GetServiceStats(ctx context.Context, startMs, endMs int64) ([]repository.ServiceStat, error)
	DeleteBefore(ctx context.Context, beforeMs int64) (int64, error)
}

type ProgressRepository interface {
	Upsert(ctx context.Context, summary *schema.ProgressSummary) error
	Get(ctx context.Context) (*schema.ProgressSummary, error)
}

type ReportRepository interface {
	Upsert(ctx context.Context, report *schema.PeriodReport) error
	GetByTypeAndRange(ctx context.Context, periodType, startDate, endDate string, maxAge time.Duration) (*schema.PeriodReport, error)
	ListByType(ctx context.Context, periodType string, limit int) ([]schema.PeriodReport, error)
}

// SessionSource 平台数据源（网络侧）
type SessionSource interface {
	GetAllSessionsSince(ctx context.Context, sinceMs int64) ([]platform.SessionPayload, error)
	GetProgressSummary(ctx context.Context) (*platform.ProgressPayload, error)
	IsConfigured() bool
}

// InsightIndexer 洞察记忆索引
type InsightIndexer interface {
	IndexReport(ctx context.Context, report *schema.PeriodReport) error
	Query(ctx context.Context, query string, topK int) ([]MemoryResult, error)
	Enabled() bool
}

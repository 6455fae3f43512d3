package service

import (
	"context"
	"fmt"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/metrics"
)

// AnalyticsService 面向消费端的快照服务：从本地存储取数、
// 读取成长摘要缓存，再调用纯聚合引擎计算。
// 存储层失败显式上抛，不会退化成空快照。
type AnalyticsService struct {
	recordRepo   RecordRepository
	progressRepo ProgressRepository
	consistency  ConsistencyPolicy
	location     *time.Location
}

// NewAnalyticsService 创建快照服务
func NewAnalyticsService(recordRepo RecordRepository, progressRepo ProgressRepository) *AnalyticsService {
	return &AnalyticsService{
		recordRepo:   recordRepo,
		progressRepo: progressRepo,
		consistency:  DefaultConsistencyPolicy{},
		location:     time.Local,
	}
}

// GetSnapshot 计算指定时间窗口的分析快照
func (s *AnalyticsService) GetSnapshot(ctx context.Context, timeRange TimeRange) (*AnalyticsSnapshot, error) {
	now := time.Now()

	records, err := s.recordRepo.GetSince(ctx, timeRange.CutoffMs(now, s.location))
	if err != nil {
		return nil, fmt.Errorf("读取会话记录失败: %w", err)
	}

	growthRate := 0.0
	summary, err := s.progressRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取成长摘要失败: %w", err)
	}
	if summary != nil {
		growthRate = summary.GrowthRatePercent
	}

	start := time.Now()
	snapshot := ComputeSnapshot(records, timeRange, SnapshotOptions{
		Now:         now,
		Location:    s.location,
		GrowthRate:  growthRate,
		Consistency: s.consistency,
	})
	metrics.SnapshotComputeSeconds.Observe(time.Since(start).Seconds())

	return snapshot, nil
}

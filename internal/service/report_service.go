package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/eventbus"
	"github.com/muxin-dev/SoulPulse/internal/repository"
	"github.com/muxin-dev/SoulPulse/internal/schema"
)

// 报告类型
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// 缓存时效：已结束的周期指标不会再变化，长缓存；
// 进行中的周期随同步更新，短缓存。
const (
	closedPeriodMaxAge  = 14 * 24 * time.Hour
	currentPeriodMaxAge = time.Hour
)

// ReportService 阶段报告服务：按周/月汇总会话记录，
// 复用聚合引擎的口径，结果 upsert 缓存并送入洞察记忆索引。
type ReportService struct {
	recordRepo RecordRepository
	reportRepo ReportRepository
	indexer    InsightIndexer
	hub        *eventbus.Hub
	location   *time.Location
}

// NewReportService 创建阶段报告服务
func NewReportService(recordRepo RecordRepository, reportRepo ReportRepository, indexer InsightIndexer, hub *eventbus.Hub) *ReportService {
	return &ReportService{
		recordRepo: recordRepo,
		reportRepo: reportRepo,
		indexer:    indexer,
		hub:        hub,
		location:   time.Local,
	}
}

// GetWeeklyReport 获取包含 date 的周报告（周日起始），缓存新鲜则直接返回
func (s *ReportService) GetWeeklyReport(ctx context.Context, date string) (*schema.PeriodReport, error) {
	startMs, endMs, startDate, endDate, err := repository.WeekRange(date)
	if err != nil {
		return nil, err
	}
	return s.getOrBuild(ctx, PeriodWeek, startMs, endMs, startDate, endDate)
}

// GetMonthlyReport 获取包含 date 的月报告
func (s *ReportService) GetMonthlyReport(ctx context.Context, date string) (*schema.PeriodReport, error) {
	startMs, endMs, startDate, endDate, err := repository.MonthRange(date)
	if err != nil {
		return nil, err
	}
	return s.getOrBuild(ctx, PeriodMonth, startMs, endMs, startDate, endDate)
}

// History 历史报告（按开始日期倒序）
func (s *ReportService) History(ctx context.Context, periodType string, limit int) ([]schema.PeriodReport, error) {
	if periodType != PeriodWeek && periodType != PeriodMonth {
		return nil, fmt.Errorf("不支持的报告类型: %q", periodType)
	}
	return s.reportRepo.ListByType(ctx, periodType, limit)
}

func (s *ReportService) getOrBuild(ctx context.Context, periodType string, startMs, endMs int64, startDate, endDate string) (*schema.PeriodReport, error) {
	maxAge := currentPeriodMaxAge
	if endMs < time.Now().UnixMilli() {
		maxAge = closedPeriodMaxAge
	}

	cached, err := s.reportRepo.GetByTypeAndRange(ctx, periodType, startDate, endDate, maxAge)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		slog.Debug("阶段报告命中缓存", "type", periodType, "start", startDate)
		return cached, nil
	}

	report, err := s.build(ctx, periodType, startMs, endMs, startDate, endDate)
	if err != nil {
		return nil, err
	}

	if err := s.reportRepo.Upsert(ctx, report); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Publish(eventbus.Event{
			Type: eventbus.EventReportGenerated,
			Data: map[string]any{
				"period_type": report.PeriodType,
				"start_date":  report.StartDate,
				"end_date":    report.EndDate,
			},
		})
	}

	if s.indexer != nil && s.indexer.Enabled() {
		if err := s.indexer.IndexReport(ctx, report); err != nil {
			slog.Warn("索引阶段报告失败", "type", periodType, "start", startDate, "error", err)
		}
	}

	return report, nil
}

// build 汇总区间内记录。指标口径与快照引擎一致：
// 记录已按区间取好，引擎侧用 all 窗口避免二次过滤；
// 连续天数的"今天"锚定到区间末尾，current 对已结束周期无意义，只取 longest。
func (s *ReportService) build(ctx context.Context, periodType string, startMs, endMs int64, startDate, endDate string) (*schema.PeriodReport, error) {
	records, err := s.recordRepo.GetByTimeRange(ctx, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("读取区间记录失败: %w", err)
	}

	snapshot := ComputeSnapshot(records, RangeAll, SnapshotOptions{
		Now:      time.UnixMilli(endMs).In(s.location),
		Location: s.location,
	})

	topServices := make(schema.JSONArray, 0, 3)
	for i, slice := range snapshot.ServiceTypeDistribution {
		if i >= 3 {
			break
		}
		topServices = append(topServices, slice.Label)
	}

	report := &schema.PeriodReport{
		PeriodType:           periodType,
		StartDate:            startDate,
		EndDate:              endDate,
		TotalSessions:        snapshot.TotalSessions,
		CompletedSessions:    snapshot.CompletedSessions,
		TotalMinutes:         snapshot.InsightMetrics.TotalSpiritualTime,
		AverageEffectiveness: snapshot.InsightMetrics.AverageEffectiveness,
		BestStreak:           snapshot.Streaks.Longest,
		Consistency:          snapshot.InsightMetrics.Consistency,
		TopServices:          topServices,
		Overview:             buildOverview(periodType, snapshot),
	}
	return report, nil
}

// buildOverview 按指标生成一段概述文本
func buildOverview(periodType string, snapshot *AnalyticsSnapshot) string {
	label := "本周"
	if periodType == PeriodMonth {
		label = "本月"
	}

	if snapshot.TotalSessions == 0 {
		return fmt.Sprintf("%s没有任何会话记录。", label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s共完成 %d 次会话（记录 %d 次），累计 %d 分钟。",
		label, snapshot.CompletedSessions, snapshot.TotalSessions,
		snapshot.InsightMetrics.TotalSpiritualTime)
	fmt.Fprintf(&b, "平均效果分 %.1f，规律性 %d/100。",
		snapshot.InsightMetrics.AverageEffectiveness, snapshot.InsightMetrics.Consistency)
	if snapshot.Streaks.Longest > 1 {
		fmt.Fprintf(&b, "最长连续 %d 天保持练习。", snapshot.Streaks.Longest)
	}
	if len(snapshot.ServiceTypeDistribution) > 0 {
		top := snapshot.ServiceTypeDistribution[0]
		fmt.Fprintf(&b, "最常使用的服务是「%s」（%d 次）。", top.Label, top.Count)
	}
	return b.String()
}

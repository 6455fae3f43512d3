package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/schema"
)

// TimeRange 分析时间窗口
type TimeRange string

const (
	Range7Days  TimeRange = "7days"
	Range30Days TimeRange = "30days"
	Range90Days TimeRange = "90days"
	RangeAll    TimeRange = "all"
)

// ParseTimeRange 解析时间窗口参数；空值回退 30days，未知值报错
func ParseTimeRange(s string) (TimeRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Range30Days):
		return Range30Days, nil
	case string(Range7Days):
		return Range7Days, nil
	case string(Range90Days):
		return Range90Days, nil
	case string(RangeAll):
		return RangeAll, nil
	default:
		return "", fmt.Errorf("不支持的时间窗口: %q", s)
	}
}

// Days 窗口天数；all 返回 0
func (r TimeRange) Days() int {
	switch r {
	case Range7Days:
		return 7
	case Range30Days:
		return 30
	case Range90Days:
		return 90
	default:
		return 0
	}
}

// CutoffMs 窗口下边界（Unix 毫秒）：now 往前推 N 个日历天；
// all 固定取 2000-01-01（远早于平台上线）。
func (r TimeRange) CutoffMs(now time.Time, loc *time.Location) int64 {
	if loc == nil {
		loc = time.Local
	}
	if r == RangeAll {
		return time.Date(2000, 1, 1, 0, 0, 0, 0, loc).UnixMilli()
	}
	return now.In(loc).AddDate(0, 0, -r.Days()).UnixMilli()
}

// ProgressPoint 每日进度点
type ProgressPoint struct {
	Date            string `json:"date"`
	DailyCount      int    `json:"daily_count"`
	CumulativeCount int    `json:"cumulative_count"`
}

// ServiceSlice 服务类型分布切片
type ServiceSlice struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

// WeekdayBucket 周分布桶
type WeekdayBucket struct {
	Weekday string `json:"weekday"`
	Count   int    `json:"count"`
}

// TimeOfDayBucket 时段分布桶，半开区间 [start_hour, end_hour)
type TimeOfDayBucket struct {
	Label     string `json:"label"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Count     int    `json:"count"`
}

// EffectivenessPoint 效果趋势点，session_number 按窗口内时间顺序从 1 编号
type EffectivenessPoint struct {
	SessionNumber int    `json:"session_number"`
	Effectiveness int    `json:"effectiveness"`
	Duration      int    `json:"duration"`
	Date          string `json:"date"`
}

// Streaks 连续天数（单位：天）
type Streaks struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// InsightMetrics 汇总洞察
type InsightMetrics struct {
	TotalSpiritualTime   int     `json:"total_spiritual_time"`  // 窗口内总时长（分钟）
	AverageEffectiveness float64 `json:"average_effectiveness"` // 平均效果分，空窗口为 0
	GrowthRate           float64 `json:"growth_rate"`           // 远端成长摘要透传
	Consistency          int     `json:"consistency"`           // 规律性 0-100
}

// AnalyticsSnapshot 一次 (records, range) 输入的全部派生指标。
// 纯值对象：不持久化，输入变化时整体重算，消费方不得修改。
type AnalyticsSnapshot struct {
	TimeRange               TimeRange            `json:"time_range"`
	TotalSessions           int                  `json:"total_sessions"`
	CompletedSessions       int                  `json:"completed_sessions"`
	AverageDurationMinutes  float64              `json:"average_duration_minutes"`
	ProgressSeries          []ProgressPoint      `json:"progress_series"`
	ServiceTypeDistribution []ServiceSlice       `json:"service_type_distribution"`
	WeeklyPattern           []WeekdayBucket      `json:"weekly_pattern"`
	TimeOfDayPattern        []TimeOfDayBucket    `json:"time_of_day_pattern"`
	EffectivenessSeries     []EffectivenessPoint `json:"effectiveness_series"`
	Streaks                 Streaks              `json:"streaks"`
	InsightMetrics          InsightMetrics       `json:"insight_metrics"`
}

// SnapshotOptions 快照计算选项
type SnapshotOptions struct {
	Now         time.Time         // 窗口下边界与连续天数的"今天"锚点；零值取当前时间
	Location    *time.Location    // 日历口径（日期、星期、小时）；nil 取 time.Local
	GrowthRate  float64           // 外部成长摘要透传，引擎不自行计算
	Consistency ConsistencyPolicy // nil 取默认策略
}

// ComputeSnapshot 聚合引擎唯一入口：纯函数，无 I/O，不修改输入。
// 契约：
//   - 记录先按 created_at 稳定升序排序（防御输入乱序），效果序列按此顺序编号
//   - 日期、星期、小时一律按 opts.Location 计算，周从周日起始
//   - 空输入返回全零快照；7 个周桶与 6 个时段桶始终完整输出
//   - 相同输入（含固定的 Now）得到比特一致的输出
func ComputeSnapshot(records []schema.SessionRecord, timeRange TimeRange, opts SnapshotOptions) *AnalyticsSnapshot {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Consistency == nil {
		opts.Consistency = DefaultConsistencyPolicy{}
	}

	filtered := filterAndSort(records, timeRange.CutoffMs(opts.Now, opts.Location))

	return &AnalyticsSnapshot{
		TimeRange:               timeRange,
		TotalSessions:           len(filtered),
		CompletedSessions:       countCompleted(filtered),
		AverageDurationMinutes:  averageDuration(filtered),
		ProgressSeries:          buildProgressSeries(filtered, opts.Location),
		ServiceTypeDistribution: buildServiceDistribution(filtered),
		WeeklyPattern:           buildWeeklyPattern(filtered, opts.Location),
		TimeOfDayPattern:        buildTimeOfDayPattern(filtered, opts.Location),
		EffectivenessSeries:     buildEffectivenessSeries(filtered, opts.Location),
		Streaks:                 computeStreaks(filtered, opts.Now, opts.Location),
		InsightMetrics:          buildInsightMetrics(filtered, opts),
	}
}

// filterAndSort 过滤窗口外记录并按 created_at 稳定升序排序
func filterAndSort(records []schema.SessionRecord, cutoffMs int64) []schema.SessionRecord {
	filtered := make([]schema.SessionRecord, 0, len(records))
	for i := range records {
		if records[i].CreatedAt >= cutoffMs {
			filtered = append(filtered, records[i])
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt < filtered[j].CreatedAt
	})
	return filtered
}

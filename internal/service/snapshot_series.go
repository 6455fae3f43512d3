package service

import (
	"sort"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/schema"
)

// palette 服务类型分布的固定配色，标签数超出时循环复用。
// 同一快照内相同标签始终拿到相同颜色。
var palette = [...]string{
	"#8B5CF6", // 紫
	"#06B6D4", // 青
	"#F59E0B", // 琥珀
	"#10B981", // 翠绿
	"#EC4899", // 粉
	"#6366F1", // 靛蓝
}

// weekdayNames 周分布桶名，周日起始（与 time.Weekday 下标一致）
var weekdayNames = [...]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// timeOfDayWindows 六个命名时段，半开区间；Late Night 跨午夜 [23, 5)
var timeOfDayWindows = [...]struct {
	Label string
	Start int
	End   int
}{
	{"Early Morning", 5, 8},
	{"Morning", 8, 12},
	{"Afternoon", 12, 17},
	{"Evening", 17, 20},
	{"Night", 20, 23},
	{"Late Night", 23, 5},
}

// formatDate 时间戳转本地日期 YYYY-MM-DD
func formatDate(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format("2006-01-02")
}

func countCompleted(records []schema.SessionRecord) int {
	n := 0
	for i := range records {
		if records[i].IsCompleted() {
			n++
		}
	}
	return n
}

func averageDuration(records []schema.SessionRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	total := 0
	for i := range records {
		total += records[i].DurationMinutes
	}
	return float64(total) / float64(len(records))
}

// buildProgressSeries 按本地日期分组，输出每日次数与累计次数（日期升序）
func buildProgressSeries(records []schema.SessionRecord, loc *time.Location) []ProgressPoint {
	daily := make(map[string]int)
	for i := range records {
		daily[formatDate(records[i].CreatedAt, loc)]++
	}

	dates := make([]string, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	series := make([]ProgressPoint, 0, len(dates))
	cumulative := 0
	for _, d := range dates {
		cumulative += daily[d]
		series = append(series, ProgressPoint{
			Date:            d,
			DailyCount:      daily[d],
			CumulativeCount: cumulative,
		})
	}
	return series
}

// buildServiceDistribution 按服务标签计数并分配稳定配色。
// 排序：次数倒序，同次数按标签字典序，再按下标循环取色。
func buildServiceDistribution(records []schema.SessionRecord) []ServiceSlice {
	counts := make(map[string]int)
	for i := range records {
		counts[records[i].ServiceLabel()]++
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	dist := make([]ServiceSlice, 0, len(labels))
	for i, label := range labels {
		dist = append(dist, ServiceSlice{
			Label: label,
			Count: counts[label],
			Color: palette[i%len(palette)],
		})
	}
	return dist
}

// buildWeeklyPattern 按星期分桶，7 个桶始终完整输出
func buildWeeklyPattern(records []schema.SessionRecord, loc *time.Location) []WeekdayBucket {
	buckets := make([]WeekdayBucket, len(weekdayNames))
	for i, name := range weekdayNames {
		buckets[i] = WeekdayBucket{Weekday: name}
	}
	for i := range records {
		wd := time.UnixMilli(records[i].CreatedAt).In(loc).Weekday()
		buckets[int(wd)].Count++
	}
	return buckets
}

// buildTimeOfDayPattern 按小时落入命名时段，6 个桶始终完整输出
func buildTimeOfDayPattern(records []schema.SessionRecord, loc *time.Location) []TimeOfDayBucket {
	buckets := make([]TimeOfDayBucket, len(timeOfDayWindows))
	for i, w := range timeOfDayWindows {
		buckets[i] = TimeOfDayBucket{Label: w.Label, StartHour: w.Start, EndHour: w.End}
	}
	for i := range records {
		hour := time.UnixMilli(records[i].CreatedAt).In(loc).Hour()
		buckets[timeOfDayIndex(hour)].Count++
	}
	return buckets
}

// timeOfDayIndex 小时到时段下标；跨午夜窗口（Start > End）按两段判断
func timeOfDayIndex(hour int) int {
	for i, w := range timeOfDayWindows {
		if w.Start < w.End {
			if hour >= w.Start && hour < w.End {
				return i
			}
		} else if hour >= w.Start || hour < w.End {
			return i
		}
	}
	// 六个时段覆盖全部 24 小时，不会走到这里
	return len(timeOfDayWindows) - 1
}

// buildEffectivenessSeries 每条记录一个点，按窗口内时间顺序编号
func buildEffectivenessSeries(records []schema.SessionRecord, loc *time.Location) []EffectivenessPoint {
	series := make([]EffectivenessPoint, 0, len(records))
	for i := range records {
		series = append(series, EffectivenessPoint{
			SessionNumber: i + 1,
			Effectiveness: records[i].EffectivenessScore,
			Duration:      records[i].DurationMinutes,
			Date:          formatDate(records[i].CreatedAt, loc),
		})
	}
	return series
}

func buildInsightMetrics(records []schema.SessionRecord, opts SnapshotOptions) InsightMetrics {
	totalMinutes := 0
	effectivenessSum := 0
	for i := range records {
		totalMinutes += records[i].DurationMinutes
		effectivenessSum += records[i].EffectivenessScore
	}

	average := 0.0
	if len(records) > 0 {
		average = float64(effectivenessSum) / float64(len(records))
	}

	return InsightMetrics{
		TotalSpiritualTime:   totalMinutes,
		AverageEffectiveness: average,
		GrowthRate:           opts.GrowthRate,
		Consistency:          opts.Consistency.Score(len(records)),
	}
}

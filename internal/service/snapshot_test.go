package service

import (
	"reflect"
	"testing"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/schema"
)

// 测试统一用 UTC 口径与固定的"现在"，保证结果与运行环境无关
var testLoc = time.UTC

func testOpts(now time.Time) SnapshotOptions {
	return SnapshotOptions{Now: now, Location: testLoc}
}

func recAt(t time.Time) schema.SessionRecord {
	return schema.SessionRecord{CreatedAt: t.UnixMilli(), Status: schema.StatusCompleted}
}

func day(year int, month time.Month, d, hour int) time.Time {
	return time.Date(year, month, d, hour, 0, 0, 0, testLoc)
}

func TestComputeSnapshot_EmptyInput(t *testing.T) {
	now := day(2026, 8, 20, 12)
	s := ComputeSnapshot(nil, Range30Days, testOpts(now))

	if s.TotalSessions != 0 || s.CompletedSessions != 0 {
		t.Fatalf("totals=%d/%d, want 0/0", s.TotalSessions, s.CompletedSessions)
	}
	if s.AverageDurationMinutes != 0 {
		t.Fatalf("avg duration=%v, want 0", s.AverageDurationMinutes)
	}
	if s.Streaks.Current != 0 || s.Streaks.Longest != 0 {
		t.Fatalf("streaks=%+v, want 0/0", s.Streaks)
	}
	if s.InsightMetrics.AverageEffectiveness != 0 {
		t.Fatalf("avg effectiveness=%v, want 0", s.InsightMetrics.AverageEffectiveness)
	}
	if len(s.WeeklyPattern) != 7 {
		t.Fatalf("weekly buckets=%d, want 7", len(s.WeeklyPattern))
	}
	if len(s.TimeOfDayPattern) != 6 {
		t.Fatalf("time-of-day buckets=%d, want 6", len(s.TimeOfDayPattern))
	}
	if len(s.ProgressSeries) != 0 || len(s.EffectivenessSeries) != 0 || len(s.ServiceTypeDistribution) != 0 {
		t.Fatalf("series should be empty, got %d/%d/%d",
			len(s.ProgressSeries), len(s.EffectivenessSeries), len(s.ServiceTypeDistribution))
	}
}

func TestComputeSnapshot_RangeFilter(t *testing.T) {
	now := day(2026, 8, 20, 12)
	records := []schema.SessionRecord{
		recAt(now.AddDate(0, 0, -1)),  // 窗口内
		recAt(now.AddDate(0, 0, -6)),  // 窗口内
		recAt(now.AddDate(0, 0, -10)), // 窗口外
	}

	s := ComputeSnapshot(records, Range7Days, testOpts(now))
	if s.TotalSessions != 2 {
		t.Fatalf("total=%d, want 2", s.TotalSessions)
	}
	if s.CompletedSessions > s.TotalSessions {
		t.Fatalf("completed=%d > total=%d", s.CompletedSessions, s.TotalSessions)
	}
}

func TestComputeSnapshot_CutoffBoundaryIncluded(t *testing.T) {
	now := day(2026, 8, 20, 12)
	cutoff := Range7Days.CutoffMs(now, testLoc)
	records := []schema.SessionRecord{
		{CreatedAt: cutoff, Status: schema.StatusCompleted},     // 恰好在边界
		{CreatedAt: cutoff - 1, Status: schema.StatusCompleted}, // 边界外 1ms
	}

	s := ComputeSnapshot(records, Range7Days, testOpts(now))
	if s.TotalSessions != 1 {
		t.Fatalf("total=%d, want 1 (boundary record included)", s.TotalSessions)
	}
}

func TestComputeSnapshot_AllRange(t *testing.T) {
	now := day(2026, 8, 20, 12)
	records := []schema.SessionRecord{
		recAt(day(2003, 5, 1, 10)),
	}

	s := ComputeSnapshot(records, RangeAll, testOpts(now))
	if s.TotalSessions != 1 {
		t.Fatalf("total=%d, want 1 (all range reaches back to 2000)", s.TotalSessions)
	}
}

func TestStreaks_ConsecutiveDays(t *testing.T) {
	d := day(2026, 8, 18, 9)
	now := d.AddDate(0, 0, 2) // 今天 = D+2
	records := []schema.SessionRecord{
		recAt(d), recAt(d.AddDate(0, 0, 1)), recAt(d.AddDate(0, 0, 2)),
	}

	s := ComputeSnapshot(records, RangeAll, testOpts(now))
	if s.Streaks.Longest != 3 || s.Streaks.Current != 3 {
		t.Fatalf("streaks=%+v, want current=3 longest=3", s.Streaks)
	}
}

func TestStreaks_GapBreaksLongestButNotCurrent(t *testing.T) {
	d := day(2026, 8, 10, 9)
	now := d.AddDate(0, 0, 5) // 今天 = D+5，且 D+5 有记录
	records := []schema.SessionRecord{
		recAt(d), recAt(d.AddDate(0, 0, 5)),
	}

	s := ComputeSnapshot(records, RangeAll, testOpts(now))
	if s.Streaks.Longest != 1 || s.Streaks.Current != 1 {
		t.Fatalf("streaks=%+v, want current=1 longest=1", s.Streaks)
	}
}

func TestStreaks_StaleDateZeroesCurrent(t *testing.T) {
	d := day(2026, 8, 10, 9)
	now := d.AddDate(0, 0, 3) // 最近活跃日期在 3 天前
	records := []schema.SessionRecord{recAt(d)}

	s := ComputeSnapshot(records, RangeAll, testOpts(now))
	if s.Streaks.Current != 0 || s.Streaks.Longest != 1 {
		t.Fatalf("streaks=%+v, want current=0 longest=1", s.Streaks)
	}
}

func TestStreaks_YesterdayStillCounts(t *testing.T) {
	d := day(2026, 8, 18, 23)
	now := d.AddDate(0, 0, 1) // 最近活跃日期是昨天
	records := []schema.SessionRecord{
		recAt(d.AddDate(0, 0, -1)), recAt(d),
	}

	s := ComputeSnapshot(records, RangeAll, testOpts(now))
	if s.Streaks.Current != 2 || s.Streaks.Longest != 2 {
		t.Fatalf("streaks=%+v, want current=2 longest=2", s.Streaks)
	}
}

func TestStreaks_CurrentNeverExceedsLongest(t *testing.T) {
	d := day(2026, 8, 1, 9)
	now := day(2026, 8, 20, 12)
	// 8/1-8/5 连续 5 天，8/19-8/20 连续 2 天
	var records []schema.SessionRecord
	for i := 0; i < 5; i++ {
		records = append(records, recAt(d.AddDate(0, 0, i)))
	}
	records = append(records, recAt(day(2026, 8, 19, 9)), recAt(day(2026, 8, 20, 9)))

	s := ComputeSnapshot(records, RangeAll, testOpts(now))
	if s.Streaks.Longest != 5 || s.Streaks.Current != 2 {
		t.Fatalf("streaks=%+v, want current=2 longest=5", s.Streaks)
	}
	if s.Streaks.Current > s.Streaks.Longest {
		t.Fatalf("current=%d > longest=%d", s.Streaks.Current, s.Streaks.Longest)
	}
}

func TestWeeklyPattern_AllOnMonday(t *testing.T) {
	// 2026-08-17 是周一
	monday := day(2026, 8, 17, 10)
	now := day(2026, 8, 20, 12)
	var records []schema.SessionRecord
	for i := 0; i < 10; i++ {
		records = append(records, recAt(monday.Add(time.Duration(i)*time.Minute)))
	}

	s := ComputeSnapshot(records, Range30Days, testOpts(now))
	if len(s.WeeklyPattern) != 7 {
		t.Fatalf("weekly buckets=%d, want 7", len(s.WeeklyPattern))
	}
	for i, bucket := range s.WeeklyPattern {
		want := 0
		if bucket.Weekday == "Monday" {
			want = 10
		}
		if bucket.Count != want {
			t.Fatalf("bucket[%d] %s=%d, want %d", i, bucket.Weekday, bucket.Count, want)
		}
	}
	if s.WeeklyPattern[0].Weekday != "Sunday" {
		t.Fatalf("first bucket=%s, want Sunday (周从周日起始)", s.WeeklyPattern[0].Weekday)
	}
}

func TestTimeOfDayPattern_WindowAssignment(t *testing.T) {
	now := day(2026, 8, 20, 12)
	cases := []struct {
		hour int
		want string
	}{
		{5, "Early Morning"},
		{7, "Early Morning"},
		{8, "Morning"},
		{11, "Morning"},
		{12, "Afternoon"},
		{16, "Afternoon"},
		{17, "Evening"},
		{19, "Evening"},
		{20, "Night"},
		{22, "Night"},
		{23, "Late Night"},
		{0, "Late Night"},
		{4, "Late Night"},
	}

	for _, tc := range cases {
		records := []schema.SessionRecord{recAt(day(2026, 8, 19, tc.hour))}
		s := ComputeSnapshot(records, Range7Days, testOpts(now))

		if len(s.TimeOfDayPattern) != 6 {
			t.Fatalf("time-of-day buckets=%d, want 6", len(s.TimeOfDayPattern))
		}
		for _, bucket := range s.TimeOfDayPattern {
			want := 0
			if bucket.Label == tc.want {
				want = 1
			}
			if bucket.Count != want {
				t.Fatalf("hour=%d: bucket %s=%d, want %d", tc.hour, bucket.Label, bucket.Count, want)
			}
		}
	}
}

func TestServiceDistribution_FallbackAndColors(t *testing.T) {
	now := day(2026, 8, 20, 12)
	base := day(2026, 8, 19, 10)
	records := []schema.SessionRecord{
		{CreatedAt: base.UnixMilli(), ServiceName: "Tarot"},
		{CreatedAt: base.Add(time.Minute).UnixMilli(), ServiceName: "Tarot"},
		{CreatedAt: base.Add(2 * time.Minute).UnixMilli(), ServiceType: "Meditation"},
		{CreatedAt: base.Add(3 * time.Minute).UnixMilli()}, // 名称与类型都缺失
	}

	s := ComputeSnapshot(records, Range7Days, testOpts(now))
	if len(s.ServiceTypeDistribution) != 3 {
		t.Fatalf("labels=%d, want 3", len(s.ServiceTypeDistribution))
	}
	if s.ServiceTypeDistribution[0].Label != "Tarot" || s.ServiceTypeDistribution[0].Count != 2 {
		t.Fatalf("top=%+v, want Tarot x2 (按次数倒序)", s.ServiceTypeDistribution[0])
	}

	found := false
	for _, slice := range s.ServiceTypeDistribution {
		if slice.Label == schema.DefaultServiceLabel {
			found = true
		}
		if slice.Color == "" {
			t.Fatalf("label %s 没有配色", slice.Label)
		}
	}
	if !found {
		t.Fatalf("缺失标签的记录应归入 %q", schema.DefaultServiceLabel)
	}

	// 同一输入重算，标签与配色必须稳定
	again := ComputeSnapshot(records, Range7Days, testOpts(now))
	if !reflect.DeepEqual(s.ServiceTypeDistribution, again.ServiceTypeDistribution) {
		t.Fatalf("distribution not stable across runs")
	}
}

func TestProgressSeries_CumulativeAscending(t *testing.T) {
	now := day(2026, 8, 20, 12)
	records := []schema.SessionRecord{
		recAt(day(2026, 8, 18, 9)),
		recAt(day(2026, 8, 18, 15)),
		recAt(day(2026, 8, 16, 9)),
	}

	s := ComputeSnapshot(records, Range7Days, testOpts(now))
	want := []ProgressPoint{
		{Date: "2026-08-16", DailyCount: 1, CumulativeCount: 1},
		{Date: "2026-08-18", DailyCount: 2, CumulativeCount: 3},
	}
	if !reflect.DeepEqual(s.ProgressSeries, want) {
		t.Fatalf("progress series=%+v, want %+v", s.ProgressSeries, want)
	}
}

func TestEffectivenessSeries_ChronologicalNumbering(t *testing.T) {
	now := day(2026, 8, 20, 12)
	// 输入乱序，引擎需按 created_at 排序后编号
	records := []schema.SessionRecord{
		{CreatedAt: day(2026, 8, 19, 9).UnixMilli(), EffectivenessScore: 80, DurationMinutes: 30},
		{CreatedAt: day(2026, 8, 17, 9).UnixMilli(), EffectivenessScore: 40, DurationMinutes: 10},
		{CreatedAt: day(2026, 8, 18, 9).UnixMilli(), EffectivenessScore: 60, DurationMinutes: 20},
	}

	s := ComputeSnapshot(records, Range7Days, testOpts(now))
	if len(s.EffectivenessSeries) != 3 {
		t.Fatalf("series len=%d, want 3", len(s.EffectivenessSeries))
	}
	wantScores := []int{40, 60, 80}
	for i, p := range s.EffectivenessSeries {
		if p.SessionNumber != i+1 {
			t.Fatalf("point[%d].SessionNumber=%d, want %d", i, p.SessionNumber, i+1)
		}
		if p.Effectiveness != wantScores[i] {
			t.Fatalf("point[%d].Effectiveness=%d, want %d (按时间顺序)", i, p.Effectiveness, wantScores[i])
		}
	}
}

func TestComputeSnapshot_Idempotent(t *testing.T) {
	now := day(2026, 8, 20, 12)
	records := []schema.SessionRecord{
		{CreatedAt: day(2026, 8, 19, 9).UnixMilli(), Status: schema.StatusCompleted, ServiceName: "Tarot", DurationMinutes: 30, EffectivenessScore: 80},
		{CreatedAt: day(2026, 8, 17, 21).UnixMilli(), Status: schema.StatusCancelled, DurationMinutes: 0, EffectivenessScore: 10},
	}
	opts := SnapshotOptions{Now: now, Location: testLoc, GrowthRate: 12.5}

	first := ComputeSnapshot(records, Range30Days, opts)
	second := ComputeSnapshot(records, Range30Days, opts)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different snapshots")
	}
}

func TestComputeSnapshot_DoesNotMutateInput(t *testing.T) {
	now := day(2026, 8, 20, 12)
	records := []schema.SessionRecord{
		{CreatedAt: day(2026, 8, 19, 9).UnixMilli()},
		{CreatedAt: day(2026, 8, 17, 9).UnixMilli()},
	}
	before := append([]schema.SessionRecord(nil), records...)

	_ = ComputeSnapshot(records, Range30Days, testOpts(now))
	if !reflect.DeepEqual(records, before) {
		t.Fatalf("engine mutated its input")
	}
}

func TestComputeSnapshot_InsightMetrics(t *testing.T) {
	now := day(2026, 8, 20, 12)
	records := []schema.SessionRecord{
		{CreatedAt: day(2026, 8, 19, 9).UnixMilli(), DurationMinutes: 30, EffectivenessScore: 80},
		{CreatedAt: day(2026, 8, 18, 9).UnixMilli(), DurationMinutes: 10, EffectivenessScore: 40},
	}
	opts := SnapshotOptions{Now: now, Location: testLoc, GrowthRate: 7.5}

	s := ComputeSnapshot(records, Range30Days, opts)
	if s.InsightMetrics.TotalSpiritualTime != 40 {
		t.Fatalf("total time=%d, want 40", s.InsightMetrics.TotalSpiritualTime)
	}
	if s.InsightMetrics.AverageEffectiveness != 60 {
		t.Fatalf("avg effectiveness=%v, want 60", s.InsightMetrics.AverageEffectiveness)
	}
	if s.InsightMetrics.GrowthRate != 7.5 {
		t.Fatalf("growth rate=%v, want 7.5 (透传)", s.InsightMetrics.GrowthRate)
	}
	if s.InsightMetrics.Consistency != 10 {
		t.Fatalf("consistency=%d, want 10 (2 条 ×5)", s.InsightMetrics.Consistency)
	}
}

func TestParseTimeRange(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeRange
		wantErr bool
	}{
		{"", Range30Days, false},
		{"7days", Range7Days, false},
		{"30days", Range30Days, false},
		{"90days", Range90Days, false},
		{"all", RangeAll, false},
		{" ALL ", RangeAll, false},
		{"1year", "", true},
	}
	for _, tc := range cases {
		got, err := ParseTimeRange(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseTimeRange(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseTimeRange(%q)=%v,%v, want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestCutoffMs_AllRangePinsToYear2000(t *testing.T) {
	now := day(2026, 8, 20, 12)
	cutoff := RangeAll.CutoffMs(now, testLoc)
	want := time.Date(2000, 1, 1, 0, 0, 0, 0, testLoc).UnixMilli()
	if cutoff != want {
		t.Fatalf("cutoff=%d, want %d", cutoff, want)
	}
}

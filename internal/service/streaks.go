package service

import (
	"sort"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/schema"
)

// computeStreaks 连续天数统计。
// longest：对去重后的活跃日期做相邻扫描，取最长连续段（含末段收尾）。
// current：仅当最近活跃日期是"今天或昨天"（相对 now）时非零，
// 从最近日期向前回溯，遇到超过一天的间隔即停。
func computeStreaks(records []schema.SessionRecord, now time.Time, loc *time.Location) Streaks {
	if len(records) == 0 {
		return Streaks{}
	}

	seen := make(map[string]struct{})
	for i := range records {
		seen[formatDate(records[i].CreatedAt, loc)] = struct{}{}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		t, err := time.ParseInLocation("2006-01-02", d, loc)
		if err != nil {
			continue
		}
		dates = append(dates, t)
	}
	if len(dates) == 0 {
		return Streaks{}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	longest := 1
	run := 1
	for i := 1; i < len(dates); i++ {
		if isNextDay(dates[i-1], dates[i]) {
			run++
		} else {
			if run > longest {
				longest = run
			}
			run = 1
		}
	}
	if run > longest {
		longest = run
	}

	nowLocal := now.In(loc)
	today := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, loc)
	last := dates[len(dates)-1]

	current := 0
	if last.Equal(today) || isNextDay(last, today) {
		current = 1
		for i := len(dates) - 2; i >= 0; i-- {
			if !isNextDay(dates[i], dates[i+1]) {
				break
			}
			current++
		}
	}

	return Streaks{Current: current, Longest: longest}
}

// isNextDay b 是否恰为 a 的次日（按日历日，跨月跨年安全）
func isNextDay(a, b time.Time) bool {
	return a.AddDate(0, 0, 1).Equal(b)
}

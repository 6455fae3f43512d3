package repository

import (
	"fmt"
	"time"
)

// DayRange 将 YYYY-MM-DD 解析为本地日区间的毫秒时间戳 [start, end]（闭区间）。
func DayRange(date string) (startMs int64, endMs int64, err error) {
	loc := time.Local
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("解析日期失败: %w", err)
	}
	start := t.UnixMilli()
	end := t.AddDate(0, 0, 1).UnixMilli() - 1
	return start, end, nil
}

// WeekRange 返回包含 date 的周区间（周日起始，与聚合引擎的周口径一致）。
func WeekRange(date string) (startMs, endMs int64, startDate, endDate string, err error) {
	loc := time.Local
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return 0, 0, "", "", fmt.Errorf("解析日期失败: %w", err)
	}
	start := t.AddDate(0, 0, -int(t.Weekday()))
	end := start.AddDate(0, 0, 6)
	return start.UnixMilli(), start.AddDate(0, 0, 7).UnixMilli() - 1,
		start.Format("2006-01-02"), end.Format("2006-01-02"), nil
}

// MonthRange 返回包含 date 的自然月区间。
func MonthRange(date string) (startMs, endMs int64, startDate, endDate string, err error) {
	loc := time.Local
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return 0, 0, "", "", fmt.Errorf("解析日期失败: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	nextMonth := start.AddDate(0, 1, 0)
	end := nextMonth.AddDate(0, 0, -1)
	return start.UnixMilli(), nextMonth.UnixMilli() - 1,
		start.Format("2006-01-02"), end.Format("2006-01-02"), nil
}

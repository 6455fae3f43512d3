package service

import "time"

// FormatTimeRangeMs 起止时间戳转 "15:04-15:05" 展示串。
// 任一端缺失（0）或顺序颠倒时返回空串，消费端按未知时段处理。
func FormatTimeRangeMs(startMs, endMs int64) string {
	if startMs <= 0 || endMs <= 0 || endMs <= startMs {
		return ""
	}
	start := time.UnixMilli(startMs).Format("15:04")
	end := time.UnixMilli(endMs).Format("15:04")
	return start + "-" + end
}

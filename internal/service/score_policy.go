package service

import (
	"github.com/muxin-dev/SoulPulse/internal/schema"
)

// EffectivenessPolicy 效果评分策略（可替换）。
// 仅在远端未提供评分时参与推导。
type EffectivenessPolicy interface {
	Score(rec *schema.SessionRecord) int
}

// DefaultEffectivenessPolicy 默认效果策略：完成加成 + 评分加成 + 时长封顶加成 + clamp。
// 线性启发式口径，只作趋势参考，不是统计意义上的效果度量。
type DefaultEffectivenessPolicy struct{}

// Score 根据状态、反馈评分与时长计算效果分
func (DefaultEffectivenessPolicy) Score(rec *schema.SessionRecord) int {
	if rec == nil {
		return 0
	}

	score := 0
	if rec.Status == schema.StatusCompleted {
		score += 40
	}
	if rec.FeedbackRating > 0 {
		score += rec.FeedbackRating * 10
	}
	if rec.DurationMinutes > 0 {
		score += min(rec.DurationMinutes, 20)
	}

	return clampInt(score, 0, 100)
}

// ConsistencyPolicy 规律性评分策略（可替换）
type ConsistencyPolicy interface {
	Score(recordCount int) int
}

// DefaultConsistencyPolicy 默认规律性策略：次数 × 5 线性饱和，封顶 100。
// 同为启发式口径。
type DefaultConsistencyPolicy struct{}

// Score 根据窗口内记录数计算规律性分
func (DefaultConsistencyPolicy) Score(recordCount int) int {
	if recordCount <= 0 {
		return 0
	}
	return min(100, recordCount*5)
}

// clampInt 将数值限制在指定范围内
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

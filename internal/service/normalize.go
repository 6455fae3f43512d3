package service

import (
	"math"
	"strings"

	"github.com/muxin-dev/SoulPulse/internal/platform"
	"github.com/muxin-dev/SoulPulse/internal/schema"
)

// NormalizeSession 将平台原始载荷规整为本地记录，保证聚合引擎
// 拿到的输入总是完整的：
//   - 标签去空白；状态去空白并统一小写，原始值保留在 metadata.raw_status
//   - 时长缺失时由起止时间推导 round((completedAt-startedAt)/60000)，非负
//   - 效果分缺失时按策略推导；远端提供时 clamp 到 [0,100]
//   - 反馈评分缺失记 0
func NormalizeSession(p *platform.SessionPayload, policy EffectivenessPolicy) schema.SessionRecord {
	if policy == nil {
		policy = DefaultEffectivenessPolicy{}
	}

	rec := schema.SessionRecord{
		RemoteID:    strings.TrimSpace(p.ID),
		CreatedAt:   p.CreatedAt,
		Status:      strings.ToLower(strings.TrimSpace(p.Status)),
		ServiceName: strings.TrimSpace(p.ServiceName),
		ServiceType: strings.TrimSpace(p.ServiceType),
	}
	if p.StartedAt != nil {
		rec.StartedAt = *p.StartedAt
	}
	if p.CompletedAt != nil {
		rec.CompletedAt = *p.CompletedAt
	}
	if p.UserFeedback != nil && p.UserFeedback.Rating != nil {
		rec.FeedbackRating = *p.UserFeedback.Rating
	}

	if p.DurationMinutes != nil {
		rec.DurationMinutes = max(*p.DurationMinutes, 0)
	} else {
		rec.DurationMinutes = deriveDurationMinutes(rec.StartedAt, rec.CompletedAt)
	}

	if p.EffectivenessScore != nil {
		rec.EffectivenessScore = clampInt(*p.EffectivenessScore, 0, 100)
	} else {
		rec.EffectivenessScore = policy.Score(&rec)
	}

	rec.Metadata = buildRecordMetadata(p, rec.Status)
	return rec
}

// deriveDurationMinutes 由起止时间推导时长（分钟，四舍五入）
func deriveDurationMinutes(startedMs, completedMs int64) int {
	if startedMs <= 0 || completedMs <= 0 || completedMs <= startedMs {
		return 0
	}
	return int(math.Round(float64(completedMs-startedMs) / 60000.0))
}

// buildRecordMetadata 收集远端附加字段，空载荷返回 nil
func buildRecordMetadata(p *platform.SessionPayload, normalizedStatus string) schema.JSONMap {
	meta := schema.JSONMap{}

	if raw := strings.TrimSpace(p.Status); raw != "" && raw != normalizedStatus {
		meta["raw_status"] = raw
	}
	if p.Advisor != "" {
		meta["advisor"] = p.Advisor
	}
	if p.Channel != "" {
		meta["channel"] = p.Channel
	}
	if len(p.Tags) > 0 {
		meta["tags"] = p.Tags
	}
	if p.UserFeedback != nil && p.UserFeedback.Comment != "" {
		meta["feedback_comment"] = p.UserFeedback.Comment
	}

	if len(meta) == 0 {
		return nil
	}
	return meta
}

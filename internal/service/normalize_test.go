package service

import (
	"testing"

	"github.com/muxin-dev/SoulPulse/internal/platform"
	"github.com/muxin-dev/SoulPulse/internal/schema"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func testRecord(status string, rating, duration int) schema.SessionRecord {
	return schema.SessionRecord{Status: status, FeedbackRating: rating, DurationMinutes: duration}
}

func TestNormalizeSession_TrimsAndLowercases(t *testing.T) {
	p := &platform.SessionPayload{
		ID:          "  s-001  ",
		CreatedAt:   1700000000000,
		Status:      " Completed ",
		ServiceName: " Tarot Reading ",
		ServiceType: " divination ",
	}

	rec := NormalizeSession(p, nil)
	if rec.RemoteID != "s-001" {
		t.Fatalf("remote_id=%q, want %q", rec.RemoteID, "s-001")
	}
	if rec.Status != "completed" {
		t.Fatalf("status=%q, want %q", rec.Status, "completed")
	}
	if rec.ServiceName != "Tarot Reading" || rec.ServiceType != "divination" {
		t.Fatalf("labels=%q/%q not trimmed", rec.ServiceName, rec.ServiceType)
	}
	if got := rec.Metadata["raw_status"]; got != "Completed" {
		t.Fatalf("metadata.raw_status=%v, want Completed", got)
	}
}

func TestNormalizeSession_DurationDerived(t *testing.T) {
	started := int64(1700000000000)
	p := &platform.SessionPayload{
		ID:          "s-002",
		CreatedAt:   started,
		Status:      "completed",
		StartedAt:   int64Ptr(started),
		CompletedAt: int64Ptr(started + 29*60000 + 40000), // 29 分 40 秒，四舍五入到 30
	}

	rec := NormalizeSession(p, nil)
	if rec.DurationMinutes != 30 {
		t.Fatalf("duration=%d, want 30", rec.DurationMinutes)
	}
}

func TestNormalizeSession_DurationMissingTimestamps(t *testing.T) {
	cases := []struct {
		name string
		p    platform.SessionPayload
	}{
		{"都缺失", platform.SessionPayload{ID: "a", Status: "completed"}},
		{"只有起始", platform.SessionPayload{ID: "b", Status: "completed", StartedAt: int64Ptr(1700000000000)}},
		{"完成早于起始", platform.SessionPayload{ID: "c", Status: "completed",
			StartedAt: int64Ptr(1700000060000), CompletedAt: int64Ptr(1700000000000)}},
	}
	for _, tc := range cases {
		rec := NormalizeSession(&tc.p, nil)
		if rec.DurationMinutes != 0 {
			t.Fatalf("%s: duration=%d, want 0", tc.name, rec.DurationMinutes)
		}
	}
}

func TestNormalizeSession_ServerDurationClampedNonNegative(t *testing.T) {
	p := &platform.SessionPayload{ID: "s-003", Status: "completed", DurationMinutes: intPtr(-5)}
	rec := NormalizeSession(p, nil)
	if rec.DurationMinutes != 0 {
		t.Fatalf("duration=%d, want 0 (负值不落库)", rec.DurationMinutes)
	}
}

func TestNormalizeSession_EffectivenessDerived(t *testing.T) {
	// completed(+40) + rating 5(+50) + duration 30(封顶 +20) = 110 → clamp 100
	p := &platform.SessionPayload{
		ID:              "s-004",
		Status:          "completed",
		DurationMinutes: intPtr(30),
		UserFeedback:    &platform.FeedbackPayload{Rating: intPtr(5)},
	}
	rec := NormalizeSession(p, nil)
	if rec.EffectivenessScore != 100 {
		t.Fatalf("effectiveness=%d, want 100", rec.EffectivenessScore)
	}
	if rec.FeedbackRating != 5 {
		t.Fatalf("feedback_rating=%d, want 5", rec.FeedbackRating)
	}
}

func TestNormalizeSession_ServerEffectivenessClamped(t *testing.T) {
	p := &platform.SessionPayload{ID: "s-005", Status: "completed", EffectivenessScore: intPtr(150)}
	rec := NormalizeSession(p, nil)
	if rec.EffectivenessScore != 100 {
		t.Fatalf("effectiveness=%d, want 100 (远端值 clamp)", rec.EffectivenessScore)
	}
}

func TestNormalizeSession_MetadataCollection(t *testing.T) {
	p := &platform.SessionPayload{
		ID:           "s-006",
		Status:       "completed",
		Advisor:      "Luna",
		Channel:      "video",
		Tags:         []string{"love", "career"},
		UserFeedback: &platform.FeedbackPayload{Rating: intPtr(4), Comment: "很有启发"},
	}
	rec := NormalizeSession(p, nil)
	if rec.Metadata["advisor"] != "Luna" || rec.Metadata["channel"] != "video" {
		t.Fatalf("metadata=%v, 缺少 advisor/channel", rec.Metadata)
	}
	if rec.Metadata["feedback_comment"] != "很有启发" {
		t.Fatalf("metadata.feedback_comment=%v", rec.Metadata["feedback_comment"])
	}
	// 状态本身已是规范形式时不冗余记录
	if _, ok := rec.Metadata["raw_status"]; ok {
		t.Fatalf("raw_status 不应出现在 metadata 中: %v", rec.Metadata)
	}
}

func TestNormalizeSession_EmptyMetadataIsNil(t *testing.T) {
	p := &platform.SessionPayload{ID: "s-007", Status: "completed"}
	rec := NormalizeSession(p, nil)
	if rec.Metadata != nil {
		t.Fatalf("metadata=%v, want nil", rec.Metadata)
	}
}

func TestDefaultEffectivenessPolicy(t *testing.T) {
	policy := DefaultEffectivenessPolicy{}

	if got := policy.Score(nil); got != 0 {
		t.Fatalf("Score(nil)=%d, want 0", got)
	}

	cases := []struct {
		name     string
		status   string
		rating   int
		duration int
		want     int
	}{
		{"全零", "scheduled", 0, 0, 0},
		{"仅完成", "completed", 0, 0, 40},
		{"仅评分", "scheduled", 3, 0, 30},
		{"仅时长", "scheduled", 0, 15, 15},
		{"时长封顶", "scheduled", 0, 90, 20},
		{"组合", "completed", 2, 10, 70},
		{"上限裁剪", "completed", 5, 60, 100},
	}
	for _, tc := range cases {
		rec := testRecord(tc.status, tc.rating, tc.duration)
		if got := policy.Score(&rec); got != tc.want {
			t.Fatalf("%s: Score=%d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestDefaultConsistencyPolicy(t *testing.T) {
	policy := DefaultConsistencyPolicy{}
	cases := []struct {
		n    int
		want int
	}{
		{-1, 0}, {0, 0}, {1, 5}, {10, 50}, {20, 100}, {50, 100},
	}
	for _, tc := range cases {
		if got := policy.Score(tc.n); got != tc.want {
			t.Fatalf("Score(%d)=%d, want %d", tc.n, got, tc.want)
		}
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/repository"
	"github.com/muxin-dev/SoulPulse/internal/schema"
	"github.com/muxin-dev/SoulPulse/internal/testutil"
)

func TestGetSnapshot_EndToEnd(t *testing.T) {
	db := testutil.OpenTestDB(t)
	recordRepo := repository.NewRecordRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	svc := NewAnalyticsService(recordRepo, progressRepo)
	ctx := context.Background()

	now := time.Now()
	records := []schema.SessionRecord{
		{RemoteID: "a-1", CreatedAt: now.AddDate(0, 0, -1).UnixMilli(),
			Status: schema.StatusCompleted, ServiceName: "Tarot", DurationMinutes: 30, EffectivenessScore: 80},
		{RemoteID: "a-2", CreatedAt: now.AddDate(0, 0, -2).UnixMilli(),
			Status: schema.StatusCancelled, ServiceName: "Tarot", DurationMinutes: 0, EffectivenessScore: 10},
		{RemoteID: "a-3", CreatedAt: now.AddDate(0, 0, -40).UnixMilli(), // 30 天窗口外
			Status: schema.StatusCompleted, DurationMinutes: 60, EffectivenessScore: 90},
	}
	if _, err := recordRepo.UpsertBatch(ctx, records); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := progressRepo.Upsert(ctx, &schema.ProgressSummary{GrowthRatePercent: 15}); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	snapshot, err := svc.GetSnapshot(ctx, Range30Days)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snapshot.TotalSessions != 2 || snapshot.CompletedSessions != 1 {
		t.Fatalf("sessions=%d/%d, want 2/1", snapshot.TotalSessions, snapshot.CompletedSessions)
	}
	if snapshot.InsightMetrics.GrowthRate != 15 {
		t.Fatalf("growth=%v, want 15（来自摘要缓存）", snapshot.InsightMetrics.GrowthRate)
	}
	if snapshot.ServiceTypeDistribution[0].Label != "Tarot" {
		t.Fatalf("distribution=%+v", snapshot.ServiceTypeDistribution)
	}
}

func TestGetSnapshot_NoProgressCache(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewAnalyticsService(repository.NewRecordRepository(db), repository.NewProgressRepository(db))

	snapshot, err := svc.GetSnapshot(context.Background(), Range7Days)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snapshot.InsightMetrics.GrowthRate != 0 {
		t.Fatalf("growth=%v, want 0（从未同步摘要）", snapshot.InsightMetrics.GrowthRate)
	}
}

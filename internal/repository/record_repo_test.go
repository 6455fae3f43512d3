package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/repository"
	"github.com/muxin-dev/SoulPulse/internal/schema"
	"github.com/muxin-dev/SoulPulse/internal/testutil"
)

func newRecordRepo(t *testing.T) *repository.RecordRepository {
	t.Helper()
	return repository.NewRecordRepository(testutil.OpenTestDB(t))
}

func msAt(date string, hour int) int64 {
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour).UnixMilli()
}

func TestUpsertBatch_IdempotentByRemoteID(t *testing.T) {
	repo := newRecordRepo(t)
	ctx := context.Background()

	first := []schema.SessionRecord{{
		RemoteID:  "s-1",
		CreatedAt: msAt("2026-08-10", 9),
		Status:    "scheduled",
	}}
	if _, err := repo.UpsertBatch(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// 同一 remote_id 的更新覆盖原行
	second := []schema.SessionRecord{{
		RemoteID:           "s-1",
		CreatedAt:          msAt("2026-08-10", 9),
		Status:             "completed",
		DurationMinutes:    30,
		EffectivenessScore: 80,
	}}
	if _, err := repo.UpsertBatch(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("count=%d,%v, want 1", count, err)
	}
	records, err := repo.GetRecent(ctx, 10)
	if err != nil || len(records) != 1 {
		t.Fatalf("recent=%d,%v, want 1", len(records), err)
	}
	if records[0].Status != "completed" || records[0].DurationMinutes != 30 {
		t.Fatalf("record=%+v, 未覆盖更新", records[0])
	}
}

func TestUpsertBatch_RejectsMissingRemoteID(t *testing.T) {
	repo := newRecordRepo(t)
	records := []schema.SessionRecord{{CreatedAt: msAt("2026-08-10", 9), Status: "completed"}}
	if _, err := repo.UpsertBatch(context.Background(), records); err == nil {
		t.Fatalf("缺 remote_id 应整批拒绝")
	}
}

func TestUpsertBatch_EmptyIsNoop(t *testing.T) {
	repo := newRecordRepo(t)
	n, err := repo.UpsertBatch(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v, want 0,nil", n, err)
	}
}

func seedRecords(t *testing.T, repo *repository.RecordRepository) {
	t.Helper()
	records := []schema.SessionRecord{
		{RemoteID: "s-1", CreatedAt: msAt("2026-08-10", 9), Status: "completed", ServiceName: "Tarot", DurationMinutes: 30},
		{RemoteID: "s-2", CreatedAt: msAt("2026-08-11", 21), Status: "completed", ServiceName: "Tarot", DurationMinutes: 20},
		{RemoteID: "s-3", CreatedAt: msAt("2026-08-12", 7), Status: "cancelled", ServiceType: "Meditation"},
		{RemoteID: "s-4", CreatedAt: msAt("2026-08-14", 12), Status: "completed"}, // 标签全缺
	}
	if _, err := repo.UpsertBatch(context.Background(), records); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestGetByTimeRange_ClosedInterval(t *testing.T) {
	repo := newRecordRepo(t)
	seedRecords(t, repo)
	ctx := context.Background()

	start := msAt("2026-08-11", 21)
	end := msAt("2026-08-12", 7)
	records, err := repo.GetByTimeRange(ctx, start, end)
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len=%d, want 2（闭区间含两端）", len(records))
	}
	if records[0].CreatedAt > records[1].CreatedAt {
		t.Fatalf("结果应按时间升序")
	}

	count, err := repo.CountByTimeRange(ctx, start, end)
	if err != nil || count != 2 {
		t.Fatalf("count=%d,%v, want 2", count, err)
	}
}

func TestGetByDate(t *testing.T) {
	repo := newRecordRepo(t)
	seedRecords(t, repo)

	records, err := repo.GetByDate(context.Background(), "2026-08-11")
	if err != nil {
		t.Fatalf("GetByDate: %v", err)
	}
	if len(records) != 1 || records[0].RemoteID != "s-2" {
		t.Fatalf("records=%+v, want 仅 s-2", records)
	}

	if _, err := repo.GetByDate(context.Background(), "08/11/2026"); err == nil {
		t.Fatalf("非法日期格式应报错")
	}
}

func TestGetRecent_DescendingWithLimit(t *testing.T) {
	repo := newRecordRepo(t)
	seedRecords(t, repo)

	records, err := repo.GetRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len=%d, want 2", len(records))
	}
	if records[0].RemoteID != "s-4" || records[1].RemoteID != "s-3" {
		t.Fatalf("records=%v, 应按时间倒序", []string{records[0].RemoteID, records[1].RemoteID})
	}
}

func TestGetLastCreatedAt(t *testing.T) {
	repo := newRecordRepo(t)
	ctx := context.Background()

	last, err := repo.GetLastCreatedAt(ctx)
	if err != nil || last != 0 {
		t.Fatalf("empty db: last=%d,%v, want 0", last, err)
	}

	seedRecords(t, repo)
	last, err = repo.GetLastCreatedAt(ctx)
	if err != nil || last != msAt("2026-08-14", 12) {
		t.Fatalf("last=%d,%v, want %d", last, err, msAt("2026-08-14", 12))
	}
}

func TestGetServiceStats(t *testing.T) {
	repo := newRecordRepo(t)
	seedRecords(t, repo)

	stats, err := repo.GetServiceStats(context.Background(), msAt("2026-08-01", 0), msAt("2026-08-31", 23))
	if err != nil {
		t.Fatalf("GetServiceStats: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("len=%d, want 3", len(stats))
	}
	if stats[0].Label != "Tarot" || stats[0].SessionCount != 2 || stats[0].TotalMinutes != 50 {
		t.Fatalf("top=%+v, want Tarot 2 次 50 分钟", stats[0])
	}

	found := false
	for _, s := range stats {
		if s.Label == schema.DefaultServiceLabel {
			found = true
		}
	}
	if !found {
		t.Fatalf("标签全缺的记录应归入 %q: %+v", schema.DefaultServiceLabel, stats)
	}
}

func TestDeleteBefore(t *testing.T) {
	repo := newRecordRepo(t)
	seedRecords(t, repo)
	ctx := context.Background()

	deleted, err := repo.DeleteBefore(ctx, msAt("2026-08-12", 0))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted=%d, want 2", deleted)
	}
	count, _ := repo.Count(ctx)
	if count != 2 {
		t.Fatalf("count=%d, want 2", count)
	}
}

func TestProgressRepository_SingleRowCache(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := repository.NewProgressRepository(db)
	ctx := context.Background()

	got, err := repo.Get(ctx)
	if err != nil || got != nil {
		t.Fatalf("未同步过应返回 nil: %v,%v", got, err)
	}

	if err := repo.Upsert(ctx, &schema.ProgressSummary{GrowthRatePercent: 10, Stage: "seedling"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.Upsert(ctx, &schema.ProgressSummary{GrowthRatePercent: 22.5, Stage: "awakening"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err = repo.Get(ctx)
	if err != nil || got == nil {
		t.Fatalf("Get: %v,%v", got, err)
	}
	if got.GrowthRatePercent != 22.5 || got.Stage != "awakening" {
		t.Fatalf("summary=%+v, 应为最新一次写入", got)
	}

	var count int64
	if err := db.Model(&schema.ProgressSummary{}).Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("count=%d,%v, 缓存应只有一行", count, err)
	}
}

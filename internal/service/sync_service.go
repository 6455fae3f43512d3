package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/muxin-dev/SoulPulse/internal/eventbus"
	"github.com/muxin-dev/SoulPulse/internal/metrics"
	"github.com/muxin-dev/SoulPulse/internal/schema"
)

// SyncService 从平台拉取会话记录与成长摘要并写入本地存储。
// 同步失败通过 error 显式上抛并计入状态，绝不伪装成"拉到了空列表"——
// 消费方必须能区分"没有活动"与"同步失败"。
type SyncService struct {
	source       SessionSource
	recordRepo   RecordRepository
	progressRepo ProgressRepository
	effPolicy    EffectivenessPolicy
	hub          *eventbus.Hub
	lookback     time.Duration

	syncRuns     atomic.Int64
	syncErrors   atomic.Int64
	lastSyncAt   atomic.Int64
	lastErrorAt  atomic.Int64
	lastErrorMsg atomic.Value // string
	lastRunID    atomic.Value // string
}

// SyncServiceConfig 同步服务配置
type SyncServiceConfig struct {
	LookbackHours int // 增量同步回看窗口，兜底远端迟到的更新
}

// NewSyncService 创建同步服务
func NewSyncService(
	source SessionSource,
	recordRepo RecordRepository,
	progressRepo ProgressRepository,
	effPolicy EffectivenessPolicy,
	hub *eventbus.Hub,
	cfg *SyncServiceConfig,
) *SyncService {
	if cfg == nil {
		cfg = &SyncServiceConfig{LookbackHours: 48}
	}
	if cfg.LookbackHours <= 0 {
		cfg.LookbackHours = 48
	}
	if effPolicy == nil {
		effPolicy = DefaultEffectivenessPolicy{}
	}
	return &SyncService{
		source:       source,
		recordRepo:   recordRepo,
		progressRepo: progressRepo,
		effPolicy:    effPolicy,
		hub:          hub,
		lookback:     time.Duration(cfg.LookbackHours) * time.Hour,
	}
}

// SyncResult 单次同步结果
type SyncResult struct {
	RunID           string `json:"run_id"`
	SinceMs         int64  `json:"since_ms"`
	FetchedSessions int    `json:"fetched_sessions"`
	UpsertedRecords int    `json:"upserted_records"`
	ProgressSynced  bool   `json:"progress_synced"`
	DurationMs      int64  `json:"duration_ms"`
}

// SyncStats 同步状态快照（并发安全读取）
type SyncStats struct {
	SyncRuns     int64  `json:"sync_runs"`
	SyncErrors   int64  `json:"sync_errors"`
	LastSyncAt   int64  `json:"last_sync_at"`
	LastErrorAt  int64  `json:"last_error_at"`
	LastErrorMsg string `json:"last_error_msg"`
	LastRunID    string `json:"last_run_id"`
}

// SyncOnce 执行一次同步：增量拉取会话、规整入库、刷新成长摘要。
// 成长摘要失败不中止本次同步，但会计入错误状态。
func (s *SyncService) SyncOnce(ctx context.Context) (result *SyncResult, err error) {
	runID := uuid.NewString()
	start := time.Now()
	s.lastRunID.Store(runID)
	s.syncRuns.Add(1)

	defer func() {
		if err != nil {
			metrics.SyncRunsTotal.WithLabelValues("error").Inc()
			if s.hub != nil {
				s.hub.Publish(eventbus.Event{
					Type: eventbus.EventSyncFailed,
					Data: map[string]any{"run_id": runID, "error": err.Error()},
				})
			}
		} else {
			metrics.SyncRunsTotal.WithLabelValues("ok").Inc()
			metrics.LastSyncTimestampSeconds.SetToCurrentTime()
		}
	}()

	if !s.source.IsConfigured() {
		err = fmt.Errorf("平台 API Token 未配置")
		s.noteError(err)
		return nil, err
	}

	since, err := s.resolveSince(ctx)
	if err != nil {
		s.noteError(err)
		return nil, err
	}

	slog.Info("开始同步", "run_id", runID, "since", since)
	if s.hub != nil {
		s.hub.Publish(eventbus.Event{
			Type: eventbus.EventSyncStarted,
			Data: map[string]any{"run_id": runID, "since_ms": since},
		})
	}

	payloads, err := s.source.GetAllSessionsSince(ctx, since)
	if err != nil {
		s.noteError(err)
		return nil, fmt.Errorf("拉取会话记录失败: %w", err)
	}

	records := make([]schema.SessionRecord, 0, len(payloads))
	for i := range payloads {
		rec := NormalizeSession(&payloads[i], s.effPolicy)
		if rec.RemoteID == "" {
			slog.Warn("跳过缺少 remote_id 的会话", "run_id", runID, "created_at", rec.CreatedAt)
			continue
		}
		records = append(records, rec)
	}

	upserted := 0
	if len(records) > 0 {
		n, upsertErr := s.recordRepo.UpsertBatch(ctx, records)
		if upsertErr != nil {
			s.noteError(upsertErr)
			err = upsertErr
			return nil, err
		}
		upserted = n
		metrics.RecordsUpsertedTotal.Add(float64(n))
	}

	progressSynced := s.syncProgress(ctx, runID)

	s.lastSyncAt.Store(time.Now().UnixMilli())
	result = &SyncResult{
		RunID:           runID,
		SinceMs:         since,
		FetchedSessions: len(payloads),
		UpsertedRecords: upserted,
		ProgressSynced:  progressSynced,
		DurationMs:      time.Since(start).Milliseconds(),
	}

	if s.hub != nil {
		s.hub.Publish(eventbus.Event{
			Type: eventbus.EventSyncCompleted,
			Data: map[string]any{
				"run_id":           runID,
				"fetched_sessions": result.FetchedSessions,
				"upserted_records": result.UpsertedRecords,
				"progress_synced":  result.ProgressSynced,
				"duration_ms":      result.DurationMs,
			},
		})
	}

	slog.Info("同步完成",
		"run_id", runID,
		"fetched", len(payloads),
		"upserted", upserted,
		"progress_synced", progressSynced,
		"duration", time.Since(start),
	)
	return result, nil
}

// resolveSince 计算增量同步起点：最新记录时间减去回看窗口。
// 重叠区间由 remote_id 幂等覆盖，冷启动从 0 全量拉取。
func (s *SyncService) resolveSince(ctx context.Context) (int64, error) {
	last, err := s.recordRepo.GetLastCreatedAt(ctx)
	if err != nil {
		return 0, err
	}
	if last <= 0 {
		return 0, nil
	}
	since := last - s.lookback.Milliseconds()
	if since < 0 {
		since = 0
	}
	return since, nil
}

// syncProgress 刷新成长摘要缓存，失败只记录状态不中止同步
func (s *SyncService) syncProgress(ctx context.Context, runID string) bool {
	payload, err := s.source.GetProgressSummary(ctx)
	if err != nil {
		s.noteError(err)
		slog.Warn("拉取成长摘要失败", "run_id", runID, "error", err)
		return false
	}
	if payload == nil {
		return false
	}

	summary := &schema.ProgressSummary{
		GrowthRatePercent: payload.GrowthRatePercent,
		Stage:             payload.Stage,
		TotalSessions:     payload.TotalSessions,
		TotalMinutes:      payload.TotalMinutes,
		Raw:               schema.JSONMap(payload.Raw),
	}
	if err := s.progressRepo.Upsert(ctx, summary); err != nil {
		s.noteError(err)
		slog.Warn("写入成长摘要失败", "run_id", runID, "error", err)
		return false
	}
	return true
}

// Stats 返回同步状态
func (s *SyncService) Stats() SyncStats {
	stats := SyncStats{
		SyncRuns:    s.syncRuns.Load(),
		SyncErrors:  s.syncErrors.Load(),
		LastSyncAt:  s.lastSyncAt.Load(),
		LastErrorAt: s.lastErrorAt.Load(),
	}
	if msg, ok := s.lastErrorMsg.Load().(string); ok {
		stats.LastErrorMsg = msg
	}
	if id, ok := s.lastRunID.Load().(string); ok {
		stats.LastRunID = id
	}
	return stats
}

// noteError 记录错误状态
func (s *SyncService) noteError(err error) {
	if err == nil {
		return
	}
	s.syncErrors.Add(1)
	s.lastErrorAt.Store(time.Now().UnixMilli())
	s.lastErrorMsg.Store(err.Error())
}

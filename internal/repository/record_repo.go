package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordRepository 会话记录仓储
type RecordRepository struct {
	db *gorm.DB
}

// serviceLabelExprSQL 与引擎的标签回退口径一致：服务名 > 服务类型 > 默认标签
const serviceLabelExprSQL = "COALESCE(NULLIF(service_name, ''), NULLIF(service_type, ''), 'Spiritual Guidance')"

// NewRecordRepository 创建会话记录仓储
func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// UpsertBatch 批量写入记录（事务包裹，按 remote_id 幂等覆盖）
func (r *RecordRepository) UpsertBatch(ctx context.Context, records []schema.SessionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for i := range records {
		if records[i].RemoteID == "" {
			return 0, fmt.Errorf("第 %d 条记录缺少 remote_id", i)
		}
	}

	start := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "remote_id"}},
			UpdateAll: true,
		}).CreateInBatches(records, 100).Error
	})

	if err != nil {
		slog.Error("批量写入记录失败", "count", len(records), "error", err)
		return 0, fmt.Errorf("批量写入记录失败: %w", err)
	}

	slog.Debug("批量写入记录成功", "count", len(records), "duration", time.Since(start))
	return len(records), nil
}

// GetSince 查询 created_at >= since 的记录（毫秒，按时间升序）
func (r *RecordRepository) GetSince(ctx context.Context, sinceMs int64) ([]schema.SessionRecord, error) {
	var records []schema.SessionRecord
	if err := r.db.WithContext(ctx).
		Where("created_at >= ?", sinceMs).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询记录失败: %w", err)
	}
	return records, nil
}

// GetByTimeRange 按时间范围查询记录（毫秒闭区间，按时间升序）
func (r *RecordRepository) GetByTimeRange(ctx context.Context, startMs, endMs int64) ([]schema.SessionRecord, error) {
	var records []schema.SessionRecord
	if err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", startMs, endMs).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询记录失败: %w", err)
	}
	return records, nil
}

// GetByDate 按本地日期查询记录
func (r *RecordRepository) GetByDate(ctx context.Context, date string) ([]schema.SessionRecord, error) {
	startMs, endMs, err := DayRange(date)
	if err != nil {
		return nil, err
	}
	return r.GetByTimeRange(ctx, startMs, endMs)
}

// GetRecent 查询最近 N 条记录（按时间倒序）
func (r *RecordRepository) GetRecent(ctx context.Context, limit int) ([]schema.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []schema.SessionRecord
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询最近记录失败: %w", err)
	}
	return records, nil
}

// Count 统计记录总数
func (r *RecordRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&schema.SessionRecord{}).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计记录失败: %w", err)
	}
	return count, nil
}

// CountByTimeRange 统计时间范围内记录数量
func (r *RecordRepository) CountByTimeRange(ctx context.Context, startMs, endMs int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&schema.SessionRecord{}).
		Where("created_at >= ? AND created_at <= ?", startMs, endMs).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计记录失败: %w", err)
	}
	return count, nil
}

// GetLastCreatedAt 获取最新记录的 created_at（毫秒，无记录返回 0）
func (r *RecordRepository) GetLastCreatedAt(ctx context.Context) (int64, error) {
	var last int64
	if err := r.db.WithContext(ctx).
		Model(&schema.SessionRecord{}).
		Select("COALESCE(MAX(created_at), 0)").
		Scan(&last).Error; err != nil {
		return 0, fmt.Errorf("查询最新记录时间失败: %w", err)
	}
	return last, nil
}

// ServiceStat 服务维度统计
type ServiceStat struct {
	Label        string `json:"label"`
	SessionCount int64  `json:"session_count"`
	TotalMinutes int64  `json:"total_minutes"`
}

// GetServiceStats 按服务标签聚合统计（次数倒序）
func (r *RecordRepository) GetServiceStats(ctx context.Context, startMs, endMs int64) ([]ServiceStat, error) {
	var stats []ServiceStat
	if err := r.db.WithContext(ctx).
		Model(&schema.SessionRecord{}).
		Select(serviceLabelExprSQL+" as label, COUNT(*) as session_count, SUM(duration_minutes) as total_minutes").
		Where("created_at >= ? AND created_at <= ?", startMs, endMs).
		Group("label").
		Order("session_count DESC").
		Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("统计服务维度失败: %w", err)
	}
	return stats, nil
}

// DeleteBefore 删除 created_at 早于 beforeMs 的记录，返回删除数量
func (r *RecordRepository) DeleteBefore(ctx context.Context, beforeMs int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", beforeMs).
		Delete(&schema.SessionRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("清理过期记录失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportRepository 阶段报告仓储
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建阶段报告仓储
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Upsert 插入或更新
func (r *ReportRepository) Upsert(ctx context.Context, report *schema.PeriodReport) error {
	if report == nil {
		return fmt.Errorf("report 不能为空")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "period_type"}, {Name: "start_date"}, {Name: "end_date"}},
		UpdateAll: true,
	}).Create(report).Error
}

// GetByTypeAndRange 按类型和日期范围获取（带缓存时效检查）
func (r *ReportRepository) GetByTypeAndRange(ctx context.Context, periodType, startDate, endDate string, maxAge time.Duration) (*schema.PeriodReport, error) {
	var report schema.PeriodReport
	err := r.db.WithContext(ctx).
		Where("period_type = ? AND start_date = ? AND end_date = ?", periodType, startDate, endDate).
		First(&report).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("查询阶段报告失败: %w", err)
	}

	// 检查缓存是否过期
	if time.Since(report.UpdatedAt) > maxAge {
		return nil, nil // 过期，返回 nil 触发重新生成
	}

	return &report, nil
}

// ListByType 按类型获取历史报告（按开始日期倒序）
func (r *ReportRepository) ListByType(ctx context.Context, periodType string, limit int) ([]schema.PeriodReport, error) {
	if limit <= 0 {
		limit = 12
	}
	var reports []schema.PeriodReport
	err := r.db.WithContext(ctx).
		Where("period_type = ?", periodType).
		Order("start_date DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("查询历史报告失败: %w", err)
	}
	return reports, nil
}

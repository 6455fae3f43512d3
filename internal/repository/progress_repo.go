package repository

import (
	"context"
	"fmt"

	"github.com/muxin-dev/SoulPulse/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 成长摘要仓储（单行缓存）
type ProgressRepository struct {
	db *gorm.DB
}

// NewProgressRepository 创建成长摘要仓储
func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Upsert 覆盖写入缓存行（固定 ID=1）
func (r *ProgressRepository) Upsert(ctx context.Context, summary *schema.ProgressSummary) error {
	if summary == nil {
		return fmt.Errorf("summary 不能为空")
	}
	summary.ID = 1
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(summary).Error; err != nil {
		return fmt.Errorf("写入成长摘要失败: %w", err)
	}
	return nil
}

// Get 读取缓存行（从未同步过返回 nil）
func (r *ProgressRepository) Get(ctx context.Context) (*schema.ProgressSummary, error) {
	var summary schema.ProgressSummary
	err := r.db.WithContext(ctx).First(&summary, 1).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("查询成长摘要失败: %w", err)
	}
	return &summary, nil
}

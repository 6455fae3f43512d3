package schema

import "time"

// ProgressSummary 远端成长摘要的本地缓存。
// 表内仅维护单行（ID=1），每次同步整行覆盖。
// growth_rate_percent 是聚合引擎唯一无法本地推导的输入。
type ProgressSummary struct {
	ID                int64     `gorm:"primaryKey" json:"id"`
	GrowthRatePercent float64   `gorm:"default:0" json:"growth_rate_percent"`
	Stage             string    `gorm:"size:64" json:"stage"`
	TotalSessions     int       `gorm:"default:0" json:"total_sessions"`
	TotalMinutes      int       `gorm:"default:0" json:"total_minutes"`
	Raw               JSONMap   `gorm:"type:text" json:"raw"` // 远端原始载荷，透传未建模字段
	FetchedAt         time.Time `gorm:"autoUpdateTime" json:"fetched_at"`
}

// TableName 指定表名
func (ProgressSummary) TableName() string {
	return "progress_summaries"
}

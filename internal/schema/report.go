package schema

import (
	"database/sql/driver"
	"time"

	"github.com/goccy/go-json"
)

// PeriodReport 阶段报告（周/月）
type PeriodReport struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PeriodType           string    `gorm:"size:10;index;uniqueIndex:uniq_report_range" json:"period_type"` // "week" | "month"
	StartDate            string    `gorm:"size:10;uniqueIndex:uniq_report_range" json:"start_date"`        // YYYY-MM-DD
	EndDate              string    `gorm:"size:10;uniqueIndex:uniq_report_range" json:"end_date"`          // YYYY-MM-DD
	TotalSessions        int       `gorm:"default:0" json:"total_sessions"`
	CompletedSessions    int       `gorm:"default:0" json:"completed_sessions"`
	TotalMinutes         int       `gorm:"default:0" json:"total_minutes"`
	AverageEffectiveness float64   `gorm:"default:0" json:"average_effectiveness"`
	BestStreak           int       `gorm:"default:0" json:"best_streak"`  // 区间内最长连续天数
	Consistency          int       `gorm:"default:0" json:"consistency"`  // 0-100
	TopServices          JSONArray `gorm:"type:text" json:"top_services"` // 次数最多的服务标签
	Overview             string    `gorm:"type:text" json:"overview"`     // 按指标生成的概述
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (PeriodReport) TableName() string {
	return "period_reports"
}

// JSONArray 用于存储 JSON 数组
type JSONArray []string

// Value 实现 driver.Valuer 接口
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return "[]", nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONArray, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*j = make(JSONArray, 0)
		return nil
	}

	return json.Unmarshal(bytes, j)
}

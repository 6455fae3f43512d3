package schema

import (
	"database/sql/driver"
	"time"

	"github.com/goccy/go-json"
)

// 会话状态。远端实际为自由字符串，入库前统一小写；
// 聚合引擎只区分 completed 与其他。
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusFailed     = "failed"
)

// DefaultServiceLabel 服务名与服务类型都缺失时的回退标签
const DefaultServiceLabel = "Spiritual Guidance"

// SessionRecord 一次用户服务会话（从平台同步）
// 数据量级：千级/年
type SessionRecord struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RemoteID           string    `gorm:"size:64;uniqueIndex" json:"remote_id"`         // 平台侧 ID，幂等写入键
	CreatedAt          int64     `gorm:"index;autoCreateTime:false" json:"created_at"` // Unix 毫秒，远端权威排序键
	StartedAt          int64     `json:"started_at"`                                   // Unix 毫秒，0 表示缺失
	CompletedAt        int64     `json:"completed_at"`                                 // Unix 毫秒，0 表示缺失
	Status             string    `gorm:"size:32;index" json:"status"`
	ServiceName        string    `gorm:"size:255" json:"service_name"`
	ServiceType        string    `gorm:"size:255;index" json:"service_type"`
	DurationMinutes    int       `gorm:"default:0" json:"duration_minutes"`    // 非负，缺失时由起止时间推导
	EffectivenessScore int       `gorm:"default:0" json:"effectiveness_score"` // 0-100，缺失时按策略推导
	FeedbackRating     int       `gorm:"default:0" json:"feedback_rating"`     // 1-5，0 表示未评分
	Metadata           JSONMap   `gorm:"type:text" json:"metadata"`            // 远端附加字段（顾问、渠道、原始状态等）
	FetchedAt          time.Time `gorm:"autoCreateTime" json:"fetched_at"`     // 本地入库时间
}

// TableName 指定表名
func (SessionRecord) TableName() string {
	return "session_records"
}

// ServiceLabel 分类标签：优先服务名，其次服务类型，都缺失时回退默认标签
func (r *SessionRecord) ServiceLabel() string {
	if r.ServiceName != "" {
		return r.ServiceName
	}
	if r.ServiceType != "" {
		return r.ServiceType
	}
	return DefaultServiceLabel
}

// IsCompleted 是否已完成
func (r *SessionRecord) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// JSONMap 用于存储 JSON 对象
type JSONMap map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*j = make(JSONMap)
		return nil
	}

	return json.Unmarshal(bytes, j)
}

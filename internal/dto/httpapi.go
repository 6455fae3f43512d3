package dto

// 与消费端（仪表盘/CLI）的 JSON 契约。快照本身是纯值对象，
// 由 service 层直接序列化；这里只定义存储查询与状态类响应。

type SessionDTO struct {
	ID                 int64          `json:"id"`
	RemoteID           string         `json:"remote_id"`
	Date               string         `json:"date"`
	CreatedAt          int64          `json:"created_at"`
	TimeRange          string         `json:"time_range,omitempty"`
	Status             string         `json:"status"`
	ServiceLabel       string         `json:"service_label"`
	DurationMinutes    int            `json:"duration_minutes"`
	EffectivenessScore int            `json:"effectiveness_score"`
	FeedbackRating     int            `json:"feedback_rating,omitempty"`
	Advisor            string         `json:"advisor,omitempty"`
	Channel            string         `json:"channel,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

type ProgressDTO struct {
	GrowthRatePercent float64        `json:"growth_rate_percent"`
	Stage             string         `json:"stage,omitempty"`
	TotalSessions     int            `json:"total_sessions"`
	TotalMinutes      int            `json:"total_minutes"`
	FetchedAt         int64          `json:"fetched_at"`
	Raw               map[string]any `json:"raw,omitempty"`
}

type ReportDTO struct {
	PeriodType           string   `json:"period_type"`
	StartDate            string   `json:"start_date"`
	EndDate              string   `json:"end_date"`
	TotalSessions        int      `json:"total_sessions"`
	CompletedSessions    int      `json:"completed_sessions"`
	TotalMinutes         int      `json:"total_minutes"`
	AverageEffectiveness float64  `json:"average_effectiveness"`
	BestStreak           int      `json:"best_streak"`
	Consistency          int      `json:"consistency"`
	TopServices          []string `json:"top_services"`
	Overview             string   `json:"overview"`
	UpdatedAt            int64    `json:"updated_at"`
}

type MemoryResultDTO struct {
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
	Period     string  `json:"period"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
}

package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// Client 平台 API 客户端，拉取当前用户的会话记录与成长摘要。
// 用户上下文由 Bearer Token 决定，认证续期不在本层处理。
type Client struct {
	baseURL    string
	apiToken   string
	pageSize   int
	maxRetries int
	client     *http.Client
}

// ClientConfig 配置
type ClientConfig struct {
	BaseURL    string
	APIToken   string
	TimeoutSec int
	MaxRetries int
	PageSize   int
}

// NewClient 创建客户端
func NewClient(cfg *ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.soulguide.app"
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 15
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiToken:   cfg.APIToken,
		pageSize:   cfg.PageSize,
		maxRetries: cfg.MaxRetries,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
	}
}

// SessionPayload 平台返回的原始会话记录。
// 可选字段用指针区分“缺失”与“零值”，时间均为 Unix 毫秒。
type SessionPayload struct {
	ID                 string           `json:"id"`
	CreatedAt          int64            `json:"created_at"`
	StartedAt          *int64           `json:"started_at,omitempty"`
	CompletedAt        *int64           `json:"completed_at,omitempty"`
	Status             string           `json:"status"`
	ServiceName        string           `json:"service_name"`
	ServiceType        string           `json:"service_type"`
	DurationMinutes    *int             `json:"duration_minutes,omitempty"`
	EffectivenessScore *int             `json:"effectiveness_score,omitempty"`
	UserFeedback       *FeedbackPayload `json:"user_feedback,omitempty"`
	Advisor            string           `json:"advisor,omitempty"`
	Channel            string           `json:"channel,omitempty"`
	Tags               []string         `json:"tags,omitempty"`
}

// FeedbackPayload 用户反馈
type FeedbackPayload struct {
	Rating  *int   `json:"rating,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// SessionsPage 会话分页响应
type SessionsPage struct {
	Sessions []SessionPayload `json:"sessions"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	HasMore  bool             `json:"has_more"`
}

// ProgressPayload 平台返回的成长摘要
type ProgressPayload struct {
	GrowthRatePercent float64 `json:"growth_rate_percent"`
	Stage             string  `json:"stage,omitempty"`
	TotalSessions     int     `json:"total_sessions"`
	TotalMinutes      int     `json:"total_minutes"`

	// Raw 保留完整原始载荷，透传未建模字段
	Raw map[string]any `json:"-"`
}

// maxPages 单次同步的翻页上限，防御远端分页异常导致的死循环
const maxPages = 50

// GetSessions 拉取一页会话记录
func (c *Client) GetSessions(ctx context.Context, sinceMs int64, page int) (*SessionsPage, error) {
	if page <= 0 {
		page = 1
	}
	path := fmt.Sprintf("/api/v1/sessions?since=%d&page=%d&page_size=%d", sinceMs, page, c.pageSize)

	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}

	var resp SessionsPage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析会话响应失败: %w", err)
	}
	return &resp, nil
}

// GetAllSessionsSince 拉取 since 之后的全部会话记录（自动翻页）
func (c *Client) GetAllSessionsSince(ctx context.Context, sinceMs int64) ([]SessionPayload, error) {
	var all []SessionPayload
	for page := 1; page <= maxPages; page++ {
		resp, err := c.GetSessions(ctx, sinceMs, page)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Sessions...)
		if !resp.HasMore || len(resp.Sessions) == 0 {
			return all, nil
		}
	}
	return nil, fmt.Errorf("翻页超过上限 (%d)，同步中止", maxPages)
}

// GetProgressSummary 拉取成长摘要
func (c *Client) GetProgressSummary(ctx context.Context) (*ProgressPayload, error) {
	body, err := c.getWithRetry(ctx, "/api/v1/progress-summary")
	if err != nil {
		return nil, err
	}

	var payload ProgressPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("解析成长摘要失败: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err == nil {
		payload.Raw = raw
	}
	return &payload, nil
}

// IsConfigured 检查是否已配置
func (c *Client) IsConfigured() bool {
	return c.apiToken != ""
}

// apiStatusError 非 2xx 响应
type apiStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("平台 API 错误: %s", e.Status)
}

// getWithRetry 带重试的 GET 请求（指数退避）
func (c *Client) getWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		body, err := c.doGet(ctx, path)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// 检查是否是可重试错误（网络错误、408/429/5xx）
		if !isRetryableError(err) {
			return nil, err
		}

		// 指数退避：1s, 2s, 4s...
		backoff := time.Duration(1<<uint(i)) * time.Second
		slog.Warn("平台 API 调用失败，准备重试", "attempt", i+1, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("达到最大重试次数 (%d): %w", c.maxRetries, lastErr)
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("平台 API 错误", "status", resp.StatusCode, "path", path, "body", string(body))
		return nil, &apiStatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	return body, nil
}

// isRetryableError 判断是否是可重试错误
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *apiStatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusRequestTimeout ||
			se.StatusCode == http.StatusTooManyRequests ||
			se.StatusCode >= http.StatusInternalServerError
	}
	// 传输层错误（超时、连接中断）可重试
	return true
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/muxin-dev/SoulPulse/internal/schema"
	chromem "github.com/philippgille/chromem-go"
)

// Embedder 文本嵌入能力（由平台侧嵌入客户端实现）
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	IsConfigured() bool
}

// InsightMemory 洞察记忆：阶段报告概述的本地向量索引，
// 支持语义检索历史报告。未配置嵌入端点时整体静默停用。
type InsightMemory struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   Embedder
	enabled    bool
}

// InsightMemoryConfig 配置
type InsightMemoryConfig struct {
	Enabled     bool
	StoragePath string
}

// NewInsightMemory 创建洞察记忆。enabled=false 或嵌入端点未配置时
// 返回停用实例而非报错，调用方无需区分。
func NewInsightMemory(embedder Embedder, cfg *InsightMemoryConfig) (*InsightMemory, error) {
	if cfg == nil {
		cfg = &InsightMemoryConfig{}
	}
	if !cfg.Enabled || embedder == nil || !embedder.IsConfigured() {
		return &InsightMemory{}, nil
	}

	if cfg.StoragePath == "" {
		cfg.StoragePath = "./data/insights"
	}
	if err := os.MkdirAll(cfg.StoragePath, 0o755); err != nil {
		return nil, fmt.Errorf("创建记忆存储目录失败: %w", err)
	}

	db, err := chromem.NewPersistentDB(cfg.StoragePath, false)
	if err != nil {
		return nil, fmt.Errorf("创建向量数据库失败: %w", err)
	}

	collection, err := db.GetOrCreateCollection("period_reports", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 collection 失败: %w", err)
	}

	return &InsightMemory{
		db:         db,
		collection: collection,
		embedder:   embedder,
		enabled:    true,
	}, nil
}

// Enabled 是否启用
func (m *InsightMemory) Enabled() bool {
	return m != nil && m.enabled
}

// IndexReport 索引一份阶段报告（同一周期重复索引按 ID 覆盖）
func (m *InsightMemory) IndexReport(ctx context.Context, report *schema.PeriodReport) error {
	if !m.Enabled() {
		return nil
	}
	if report == nil || report.Overview == "" {
		return nil
	}

	content := fmt.Sprintf("周期: %s %s ~ %s\n概述: %s",
		report.PeriodType, report.StartDate, report.EndDate, report.Overview)

	embeddings, err := m.embedder.Embed(ctx, []string{content})
	if err != nil {
		return fmt.Errorf("生成嵌入失败: %w", err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("嵌入结果为空")
	}

	doc := chromem.Document{
		ID:        fmt.Sprintf("report_%s_%s", report.PeriodType, report.StartDate),
		Content:   content,
		Embedding: embeddings[0],
		Metadata: map[string]string{
			"type":       "period_report",
			"period":     report.PeriodType,
			"start_date": report.StartDate,
			"end_date":   report.EndDate,
		},
	}

	if err := m.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("添加文档失败: %w", err)
	}

	slog.Debug("索引阶段报告", "period", report.PeriodType, "start", report.StartDate)
	return nil
}

// Query 语义检索历史报告（余弦相似度）
func (m *InsightMemory) Query(ctx context.Context, query string, topK int) ([]MemoryResult, error) {
	if !m.Enabled() {
		return nil, fmt.Errorf("洞察记忆未启用")
	}
	if topK <= 0 {
		topK = 5
	}
	// chromem 要求 topK 不超过文档总数
	if count := m.collection.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	queryEmb, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("生成查询嵌入失败: %w", err)
	}
	if len(queryEmb) == 0 {
		return nil, fmt.Errorf("查询嵌入为空")
	}

	results, err := m.collection.QueryEmbedding(ctx, queryEmb[0], topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("向量搜索失败: %w", err)
	}

	memories := make([]MemoryResult, 0, len(results))
	for _, r := range results {
		memories = append(memories, MemoryResult{
			Content:    r.Content,
			Similarity: r.Similarity,
			Period:     r.Metadata["period"],
			StartDate:  r.Metadata["start_date"],
			EndDate:    r.Metadata["end_date"],
		})
	}
	return memories, nil
}

// MemoryResult 记忆检索结果
type MemoryResult struct {
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
	Period     string  `json:"period"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
}

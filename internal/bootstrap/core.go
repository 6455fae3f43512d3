package bootstrap

import (
	"github.com/muxin-dev/SoulPulse/internal/eventbus"
	"github.com/muxin-dev/SoulPulse/internal/pkg/config"
	"github.com/muxin-dev/SoulPulse/internal/platform"
	"github.com/muxin-dev/SoulPulse/internal/repository"
	"github.com/muxin-dev/SoulPulse/internal/service"
)

// Core 持有跨二进制共享的核心依赖
type Core struct {
	Cfg *config.Config
	DB  *repository.Database
	Hub *eventbus.Hub

	Repos struct {
		Record   *repository.RecordRepository
		Progress *repository.ProgressRepository
		Report   *repository.ReportRepository
	}

	Clients struct {
		Platform *platform.Client
		Embedder *platform.EmbeddingClient
	}

	Services struct {
		Sync      *service.SyncService
		Analytics *service.AnalyticsService
		Reports   *service.ReportService
		Memory    *service.InsightMemory
	}
}

// NewCore 构建核心依赖（不启动同步循环）
func NewCore(cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	config.SetupLogger(cfg.App.LogLevel)

	db, err := repository.NewDatabase(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	c := &Core{Cfg: cfg, DB: db, Hub: eventbus.NewHub()}

	// Repos
	c.Repos.Record = repository.NewRecordRepository(db.DB)
	c.Repos.Progress = repository.NewProgressRepository(db.DB)
	c.Repos.Report = repository.NewReportRepository(db.DB)

	// Clients
	c.Clients.Platform = platform.NewClient(&platform.ClientConfig{
		BaseURL:    cfg.Platform.BaseURL,
		APIToken:   cfg.Platform.APIToken,
		TimeoutSec: cfg.Platform.TimeoutSec,
		MaxRetries: cfg.Platform.MaxRetries,
		PageSize:   cfg.Platform.PageSize,
	})
	if cfg.Memory.Enabled {
		c.Clients.Embedder = platform.NewEmbeddingClient(&platform.EmbeddingConfig{
			APIKey:  cfg.Memory.APIKey,
			BaseURL: cfg.Memory.BaseURL,
			Model:   cfg.Memory.EmbeddingModel,
		})
	}

	// Services
	memory, err := service.NewInsightMemory(c.Clients.Embedder, &service.InsightMemoryConfig{
		Enabled:     cfg.Memory.Enabled,
		StoragePath: cfg.Storage.MemoryPath,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.Services.Memory = memory

	c.Services.Sync = service.NewSyncService(
		c.Clients.Platform,
		c.Repos.Record,
		c.Repos.Progress,
		service.DefaultEffectivenessPolicy{},
		c.Hub,
		&service.SyncServiceConfig{LookbackHours: cfg.Sync.LookbackHours},
	)
	c.Services.Analytics = service.NewAnalyticsService(c.Repos.Record, c.Repos.Progress)
	c.Services.Reports = service.NewReportService(c.Repos.Record, c.Repos.Report, memory, c.Hub)

	return c, nil
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

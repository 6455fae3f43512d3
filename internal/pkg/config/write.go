package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// Default 返回内置默认配置，与 setDefaults 的键值保持一致。
// 首次启动时用于生成起始配置文件。
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:     "pulse-agent",
			LogLevel: "info",
		},
		Platform: PlatformConfig{
			BaseURL:    "https://api.soulguide.app",
			APIToken:   "${PULSE_PLATFORM_API_TOKEN}",
			TimeoutSec: 15,
			MaxRetries: 3,
			PageSize:   200,
		},
		Sync: SyncConfig{
			IntervalSec:   300,
			LookbackHours: 48,
			RetainDays:    365,
		},
		Storage: StorageConfig{
			DBPath:     "~/.soulpulse/soulpulse.db",
			MemoryPath: "~/.soulpulse/insights",
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8417",
		},
		Memory: MemoryConfig{
			Enabled:        false,
			BaseURL:        "https://api.siliconflow.cn/v1",
			EmbeddingModel: "BAAI/bge-m3",
		},
	}
}

func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("获取用户主目录失败: %w", err)
	}
	return filepath.Join(home, ".soulpulse", "config.yaml"), nil
}

func WriteFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cfg 不能为空")
	}
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	payload := map[string]any{
		"app": map[string]any{
			"name":      cfg.App.Name,
			"log_level": cfg.App.LogLevel,
		},
		"platform": map[string]any{
			"base_url":    cfg.Platform.BaseURL,
			"api_token":   cfg.Platform.APIToken,
			"timeout_sec": cfg.Platform.TimeoutSec,
			"max_retries": cfg.Platform.MaxRetries,
			"page_size":   cfg.Platform.PageSize,
		},
		"sync": map[string]any{
			"interval_sec":   cfg.Sync.IntervalSec,
			"lookback_hours": cfg.Sync.LookbackHours,
			"retain_days":    cfg.Sync.RetainDays,
		},
		"storage": map[string]any{
			"db_path":     cfg.Storage.DBPath,
			"memory_path": cfg.Storage.MemoryPath,
		},
		"server": map[string]any{
			"listen":     cfg.Server.Listen,
			"static_dir": cfg.Server.StaticDir,
		},
		"memory": map[string]any{
			"enabled":         cfg.Memory.Enabled,
			"base_url":        cfg.Memory.BaseURL,
			"api_key":         cfg.Memory.APIKey,
			"embedding_model": cfg.Memory.EmbeddingModel,
		},
	}

	b, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Platform PlatformConfig `mapstructure:"platform"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Memory   MemoryConfig   `mapstructure:"memory"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

// PlatformConfig 远端平台 API 配置
type PlatformConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIToken   string `mapstructure:"api_token"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
	MaxRetries int    `mapstructure:"max_retries"`
	PageSize   int    `mapstructure:"page_size"`
}

// SyncConfig 同步配置
type SyncConfig struct {
	IntervalSec   int `mapstructure:"interval_sec"`
	LookbackHours int `mapstructure:"lookback_hours"`
	RetainDays    int `mapstructure:"retain_days"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	DBPath     string `mapstructure:"db_path"`
	MemoryPath string `mapstructure:"memory_path"`
}

// ServerConfig 本地 HTTP 服务配置
type ServerConfig struct {
	Listen    string `mapstructure:"listen"`
	StaticDir string `mapstructure:"static_dir"`
}

// MemoryConfig 洞察记忆（向量检索）配置
type MemoryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认查找路径
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("配置文件未找到，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 处理环境变量占位符
	cfg.Platform.APIToken = expandEnv(cfg.Platform.APIToken)
	cfg.Memory.APIKey = expandEnv(cfg.Memory.APIKey)

	// 处理相对路径
	cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	cfg.Storage.MemoryPath = resolvePath(cfg.Storage.MemoryPath)

	return &cfg, nil
}

// Watch 监听配置文件变更并热加载。仅日志级别等运行期字段即时生效，
// 其余字段需重启进程。
func Watch(configPath string, onChange func(*Config)) error {
	if configPath == "" {
		return fmt.Errorf("配置路径不能为空")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("配置文件变更", "op", e.Op.String(), "path", e.Name)
		cfg, err := Load(configPath)
		if err != nil {
			slog.Warn("重新加载配置失败", "error", err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "pulse-agent")
	v.SetDefault("app.log_level", "info")

	// Platform
	v.SetDefault("platform.base_url", "https://api.soulguide.app")
	v.SetDefault("platform.timeout_sec", 15)
	v.SetDefault("platform.max_retries", 3)
	v.SetDefault("platform.page_size", 200)

	// Sync
	v.SetDefault("sync.interval_sec", 300)
	v.SetDefault("sync.lookback_hours", 48)
	v.SetDefault("sync.retain_days", 365)

	// Storage
	v.SetDefault("storage.db_path", "~/.soulpulse/soulpulse.db")
	v.SetDefault("storage.memory_path", "~/.soulpulse/insights")

	// Server
	v.SetDefault("server.listen", "127.0.0.1:8417")
	v.SetDefault("server.static_dir", "")

	// Memory
	v.SetDefault("memory.enabled", false)
	v.SetDefault("memory.base_url", "https://api.siliconflow.cn/v1")
	v.SetDefault("memory.embedding_model", "BAAI/bge-m3")
}

// expandEnv 展开环境变量占位符 ${VAR}
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := s[2 : len(s)-1]
		return os.Getenv(envVar)
	}
	return s
}

// resolvePath 解析路径：~ 展开为用户主目录，相对路径以可执行文件目录为基准
func resolvePath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	if filepath.IsAbs(path) {
		return path
	}

	exe, err := os.Executable()
	if err != nil {
		return path
	}

	return filepath.Join(filepath.Dir(exe), path)
}

// SetupLogger 根据配置设置日志级别
func SetupLogger(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

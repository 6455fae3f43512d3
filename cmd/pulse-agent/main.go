package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muxin-dev/SoulPulse/internal/bootstrap"
	"github.com/muxin-dev/SoulPulse/internal/httpapi"
	"github.com/muxin-dev/SoulPulse/internal/pkg/buildinfo"
	"github.com/muxin-dev/SoulPulse/internal/pkg/config"
)

func main() {
	var cfgFlag string
	flag.StringVar(&cfgFlag, "config", "", "配置文件路径")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := cfgFlag
	if cfgPath == "" {
		if p, err := config.DefaultConfigPath(); err == nil {
			cfgPath = p
			// 首次启动生成起始配置，便于用户填入 API Token
			if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
				_ = config.WriteFile(cfgPath, config.Default())
			}
		}
	}

	rt, err := bootstrap.NewAgentRuntime(ctx, cfgPath)
	if err != nil {
		slog.Error("启动 Agent 失败", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	slog.Info("SoulPulse Agent 已启动",
		"name", rt.Cfg.App.Name,
		"version", buildinfo.Version,
		"safe_mode", rt.DB.SafeMode,
	)

	server, err := httpapi.Start(ctx, rt, httpapi.Options{
		ListenAddr: rt.Cfg.Server.Listen,
		StaticDir:  rt.Cfg.Server.StaticDir,
	})
	if err != nil {
		slog.Error("启动本地 API 失败", "error", err)
		os.Exit(1)
	}

	// 配置热加载：仅日志级别即时生效，其余字段需重启
	if cfgPath != "" {
		if err := config.Watch(cfgPath, func(cfg *config.Config) {
			config.SetupLogger(cfg.App.LogLevel)
			slog.Info("日志级别已更新", "level", cfg.App.LogLevel)
		}); err != nil {
			slog.Warn("配置热加载不可用", "error", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("收到退出信号，正在关闭...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = server.Shutdown(shutdownCtx)
	shutdownCancel()

	slog.Info("SoulPulse Agent 已退出")
}

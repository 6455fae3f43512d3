package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/muxin-dev/SoulPulse/internal/bootstrap"
	"github.com/muxin-dev/SoulPulse/internal/pkg/buildinfo"
	"github.com/muxin-dev/SoulPulse/internal/schema"
	"github.com/muxin-dev/SoulPulse/internal/service"
)

var (
	cfgFile string
	jsonOut bool
	core    *bootstrap.Core
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pulse",
		Short: "SoulPulse - 心灵成长会话分析",
		Long:  `SoulPulse 在本地同步平台会话记录，计算连续天数、使用规律与效果趋势等派生指标。`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cmd.Name() == "version" {
				return
			}
			var err error
			core, err = bootstrap.NewCore(cfgFile)
			if err != nil {
				slog.Error("初始化失败", "error", err)
				os.Exit(1)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if core != nil {
				_ = core.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "输出原始 JSON")

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(pruneCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// printJSON 原始 JSON 输出模式
func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("❌ 序列化失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}

// syncCmd 手动触发一次同步
func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "立即从平台同步会话记录",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if !core.Clients.Platform.IsConfigured() {
				fmt.Println("⚠️  平台 API Token 未配置")
				fmt.Println("   请设置环境变量 PULSE_PLATFORM_API_TOKEN，或在 config.yaml 中配置")
				os.Exit(1)
			}

			fmt.Println("🔄 正在同步...")
			result, err := core.Services.Sync.SyncOnce(ctx)
			if err != nil {
				fmt.Printf("❌ 同步失败: %v\n", err)
				os.Exit(1)
			}

			if jsonOut {
				printJSON(result)
				return
			}
			fmt.Printf("✅ 同步完成 (run %s)\n", result.RunID)
			fmt.Printf("   • 拉取会话: %d 条\n", result.FetchedSessions)
			fmt.Printf("   • 写入记录: %d 条\n", result.UpsertedRecords)
			fmt.Printf("   • 成长摘要: %v\n", checkmark(result.ProgressSynced))
			fmt.Printf("   • 耗时: %d ms\n", result.DurationMs)
		},
	}
}

// statsCmd 展示分析快照
func statsCmd() *cobra.Command {
	var rangeStr string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "查看分析快照（连续天数 / 使用规律 / 效果）",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			timeRange, err := service.ParseTimeRange(rangeStr)
			if err != nil {
				fmt.Printf("❌ %v\n", err)
				os.Exit(1)
			}

			snapshot, err := core.Services.Analytics.GetSnapshot(ctx, timeRange)
			if err != nil {
				fmt.Printf("❌ 计算快照失败: %v\n", err)
				os.Exit(1)
			}

			if jsonOut {
				printJSON(snapshot)
				return
			}

			fmt.Printf("📊 分析快照（%s）\n", timeRange)
			fmt.Println("═══════════════════════════════════════")
			fmt.Printf("  • 会话总数: %d（完成 %d）\n", snapshot.TotalSessions, snapshot.CompletedSessions)
			fmt.Printf("  • 平均时长: %.1f 分钟\n", snapshot.AverageDurationMinutes)
			fmt.Printf("  • 累计时长: %d 分钟\n", snapshot.InsightMetrics.TotalSpiritualTime)
			fmt.Printf("  • 平均效果: %.1f / 100\n", snapshot.InsightMetrics.AverageEffectiveness)
			fmt.Printf("  • 规律性: %d / 100\n", snapshot.InsightMetrics.Consistency)
			fmt.Printf("  • 成长率: %.1f%%\n", snapshot.InsightMetrics.GrowthRate)
			fmt.Printf("\n🔥 连续天数\n")
			fmt.Printf("  • 当前: %d 天\n", snapshot.Streaks.Current)
			fmt.Printf("  • 最长: %d 天\n", snapshot.Streaks.Longest)
			if len(snapshot.ServiceTypeDistribution) > 0 {
				fmt.Printf("\n🕊  服务分布\n")
				for _, slice := range snapshot.ServiceTypeDistribution {
					fmt.Printf("  • %s: %d 次\n", slice.Label, slice.Count)
				}
			}
			fmt.Println("═══════════════════════════════════════")
		},
	}

	cmd.Flags().StringVar(&rangeStr, "range", "30days", "时间窗口 (7days|30days|90days|all)")
	return cmd
}

// reportCmd 周/月报告
func reportCmd() *cobra.Command {
	var weekly bool
	var monthly bool
	var date string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "生成周/月阶段报告",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			targetDate := date
			if targetDate == "" {
				targetDate = time.Now().Format("2006-01-02")
			}

			fetch := core.Services.Reports.GetWeeklyReport
			if monthly && !weekly {
				fetch = core.Services.Reports.GetMonthlyReport
			}

			report, err := fetch(ctx, targetDate)
			if err != nil {
				fmt.Printf("❌ 生成报告失败: %v\n", err)
				os.Exit(1)
			}

			if jsonOut {
				printJSON(report)
				return
			}
			printReport(report)
		},
	}

	cmd.Flags().BoolVar(&weekly, "weekly", true, "周报告")
	cmd.Flags().BoolVar(&monthly, "monthly", false, "月报告")
	cmd.Flags().StringVar(&date, "date", "", "周期内任一日期 (YYYY-MM-DD)，默认今天")
	return cmd
}

func printReport(report *schema.PeriodReport) {
	title := "周报告"
	if report.PeriodType == service.PeriodMonth {
		title = "月报告"
	}
	fmt.Printf("📅 %s  %s ~ %s\n", title, report.StartDate, report.EndDate)
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("\n📝 概述\n%s\n", report.Overview)
	fmt.Printf("\n📊 统计\n")
	fmt.Printf("  • 会话: %d 次（完成 %d）\n", report.TotalSessions, report.CompletedSessions)
	fmt.Printf("  • 时长: %d 分钟\n", report.TotalMinutes)
	fmt.Printf("  • 平均效果: %.1f\n", report.AverageEffectiveness)
	fmt.Printf("  • 最长连续: %d 天\n", report.BestStreak)
	fmt.Printf("  • 规律性: %d / 100\n", report.Consistency)
	if len(report.TopServices) > 0 {
		fmt.Printf("\n🕊  常用服务\n")
		for _, label := range report.TopServices {
			fmt.Printf("  • %s\n", label)
		}
	}
	fmt.Println("\n═══════════════════════════════════════")
}

// sessionsCmd 查询会话记录
func sessionsCmd() *cobra.Command {
	var date string
	var recent int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "查询本地会话记录",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var records []schema.SessionRecord
			var err error
			if recent > 0 {
				records, err = core.Repos.Record.GetRecent(ctx, recent)
			} else {
				if date == "" {
					date = time.Now().Format("2006-01-02")
				}
				records, err = core.Repos.Record.GetByDate(ctx, date)
			}
			if err != nil {
				fmt.Printf("❌ 查询失败: %v\n", err)
				os.Exit(1)
			}

			if jsonOut {
				printJSON(records)
				return
			}

			if len(records) == 0 {
				fmt.Println("（无记录）")
				return
			}
			for i := range records {
				rec := &records[i]
				when := time.UnixMilli(rec.CreatedAt).Format("2006-01-02 15:04")
				fmt.Printf("• %s  %-12s %s  %d 分钟  效果 %d\n",
					when, rec.Status, rec.ServiceLabel(), rec.DurationMinutes, rec.EffectivenessScore)
			}
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "按日期查询 (YYYY-MM-DD)，默认今天")
	cmd.Flags().IntVar(&recent, "recent", 0, "查询最近 N 条（覆盖 --date）")
	return cmd
}

// searchCmd 语义检索历史报告
func searchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "语义检索历史阶段报告",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if !core.Services.Memory.Enabled() {
				fmt.Println("⚠️  洞察记忆未启用（memory.enabled=false 或嵌入端点未配置）")
				os.Exit(1)
			}

			results, err := core.Services.Memory.Query(ctx, args[0], topK)
			if err != nil {
				fmt.Printf("❌ 检索失败: %v\n", err)
				os.Exit(1)
			}

			if jsonOut {
				printJSON(results)
				return
			}

			if len(results) == 0 {
				fmt.Println("（无匹配）")
				return
			}
			for _, m := range results {
				fmt.Printf("• [%.2f] %s %s ~ %s\n", m.Similarity, m.Period, m.StartDate, m.EndDate)
				fmt.Printf("  %s\n", m.Content)
			}
		},
	}

	cmd.Flags().IntVar(&topK, "k", 5, "返回条数")
	return cmd
}

// pruneCmd 清理过期记录
func pruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "清理超过保留期的会话记录",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			if days <= 0 {
				days = core.Cfg.Sync.RetainDays
			}
			beforeMs := time.Now().AddDate(0, 0, -days).UnixMilli()

			deleted, err := core.Repos.Record.DeleteBefore(ctx, beforeMs)
			if err != nil {
				fmt.Printf("❌ 清理失败: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("✅ 已清理 %d 条超过 %d 天的记录\n", deleted, days)
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "保留天数，默认取配置 sync.retain_days")
	return cmd
}

// versionCmd 版本信息
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("SoulPulse %s (%s)\n", buildinfo.Version, buildinfo.Commit)
		},
	}
}

func checkmark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

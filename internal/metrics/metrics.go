package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRunsTotal 同步执行次数（outcome: ok / error）
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_sync_runs_total",
		Help: "同步执行次数，按结果分类",
	}, []string{"outcome"})

	// RecordsUpsertedTotal 累计写入的会话记录数
	RecordsUpsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_records_upserted_total",
		Help: "累计写入本地存储的会话记录数",
	})

	// SnapshotComputeSeconds 分析快照计算耗时
	SnapshotComputeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulse_snapshot_compute_seconds",
		Help:    "分析快照计算耗时（秒）",
		Buckets: prometheus.DefBuckets,
	})

	// LastSyncTimestampSeconds 最近一次成功同步的时间戳
	LastSyncTimestampSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_last_sync_timestamp_seconds",
		Help: "最近一次成功同步的 Unix 时间戳",
	})

	// HTTPRequestsTotal HTTP 请求次数
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_http_requests_total",
		Help: "HTTP 请求次数，按路由与状态码分类",
	}, []string{"path", "code"})
)

package dto

type StatusDTO struct {
	App     AppStatusDTO     `json:"app"`
	Storage StorageStatusDTO `json:"storage"`
	Sync    SyncStatusDTO    `json:"sync"`
	Memory  MemoryStatusDTO  `json:"memory"`
}

type AppStatusDTO struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	StartedAt string `json:"started_at"`
	UptimeSec int64  `json:"uptime_sec"`
}

type StorageStatusDTO struct {
	DBPath         string `json:"db_path"`
	SchemaVersion  int    `json:"schema_version"`
	SafeMode       bool   `json:"safe_mode"`
	SafeModeReason string `json:"safe_mode_reason,omitempty"`
	RecordCount    int64  `json:"record_count"`
	RecordCount30d int64  `json:"record_count_30d"`
	LastRecordAt   int64  `json:"last_record_at"`
}

type SyncStatusDTO struct {
	Configured   bool   `json:"configured"`
	Running      bool   `json:"running"`
	IntervalSec  int    `json:"interval_sec"`
	SyncRuns     int64  `json:"sync_runs"`
	SyncErrors   int64  `json:"sync_errors"`
	LastSyncAt   int64  `json:"last_sync_at"`
	LastErrorAt  int64  `json:"last_error_at,omitempty"`
	LastErrorMsg string `json:"last_error_msg,omitempty"`
	LastRunID    string `json:"last_run_id,omitempty"`
}

type MemoryStatusDTO struct {
	Enabled bool `json:"enabled"`
}

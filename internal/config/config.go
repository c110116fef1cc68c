package config

import (
	"flag"
	"time"
)

type StorageType string

const (
	StorageSQLite StorageType = "sqlite"
	StorageFile   StorageType = "file"
)

type Config struct {
	Storage        StorageType
	SQLitePath     string
	StateFile      string
	ThresholdsPath string

	AnalysisInterval time.Duration
	CleanupInterval  time.Duration
	Retention        time.Duration
	MaxReadings      int
	BatchSize        int
	InactiveDays     int
	TopCritical      int
	AlertTTL         time.Duration

	LogFormat string
	LogLevel  string
}

func Parse() *Config {
	cfg := &Config{}

	var storageStr string
	flag.StringVar(&storageStr, "storage", "sqlite", "Persistence backend: sqlite or file")

	flag.StringVar(&cfg.SQLitePath, "sqlite-path", "./fleet_health.db", "SQLite database path")
	flag.StringVar(&cfg.StateFile, "state-file", "./fleet_state.json", "Local state file path (fallback for sqlite, primary for -storage=file)")
	flag.StringVar(&cfg.ThresholdsPath, "thresholds", "", "Optional YAML file overriding the built-in threshold catalog")

	flag.DurationVar(&cfg.AnalysisInterval, "analysis-interval", 5*time.Minute, "Fleet analysis and save interval")
	flag.DurationVar(&cfg.CleanupInterval, "cleanup-interval", 6*time.Hour, "Inactive-truck cleanup interval")
	flag.DurationVar(&cfg.Retention, "retention", 30*24*time.Hour, "Per-sensor reading retention window")
	flag.IntVar(&cfg.MaxReadings, "max-readings", 1000, "Per-sensor reading capacity cap")
	flag.IntVar(&cfg.BatchSize, "batch-size", 200, "Durable store write batch size")
	flag.IntVar(&cfg.InactiveDays, "inactive-days", 30, "Days without readings before a truck is considered inactive")
	flag.IntVar(&cfg.TopCritical, "top-critical", 10, "Maximum critical items in the fleet summary")
	flag.DurationVar(&cfg.AlertTTL, "alert-ttl", 4*time.Hour, "Suppression window for duplicate maintenance alerts")

	flag.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")

	flag.Parse()

	cfg.Storage = StorageType(storageStr)
	if cfg.Storage != StorageSQLite && cfg.Storage != StorageFile {
		cfg.Storage = StorageSQLite
	}

	return cfg
}

package config

import (
	"fmt"
	"os"
	"time"

	pkgconfig "github.com/carlosrosan/palantir-webapp/pkg/config"
)

// PipelineConfig 特征物化配置
type PipelineConfig struct {
	Mode              string // narrow / broad
	HorizonDays       int
	Workers           int
	SensorWindowDays  int
	HistoryWindowDays int
	RangeStart        *time.Time // 未设置时从数据推导
	RangeEnd          *time.Time
	Snapshot          bool // 快照模式：每资产一行，键为 extraction_date
}

// ScorerConfig 外部评分服务配置
type ScorerConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

// ExportConfig 报表导出配置
type ExportConfig struct {
	Enabled bool
	Path    string
}

// RunLockConfig 运行锁配置
type RunLockConfig struct {
	Enabled bool
	Key     string
	TTL     time.Duration
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string
	Format string
}

// Config ETL管道全量配置
type Config struct {
	SourceDB pkgconfig.DatabaseConfig // 事件库（只读）
	SinkDB   pkgconfig.DatabaseConfig // 特征库（写入）
	Redis    pkgconfig.RedisConfig
	MQTT     pkgconfig.MQTTConfig

	Pipeline PipelineConfig
	Scorer   ScorerConfig
	Export   ExportConfig
	RunLock  RunLockConfig
	Log      LogConfig
}

// Load 从环境变量加载配置。事件库与特征库允许指向同一个实例，
// SINK_DB_* 未设置时沿用 SOURCE_DB_*。
func Load() (*Config, error) {
	cfg := &Config{
		SourceDB: pkgconfig.DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "",
			Database: "palantir",
			SSLMode:  "disable",
			MaxConns: 10,
			MaxIdle:  5,
		},
		Redis: pkgconfig.RedisConfig{
			Addr: "localhost:6379",
		},
		MQTT: pkgconfig.MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "plc-ingest",
			QoS:      1,
		},
		Pipeline: PipelineConfig{
			Mode:              pkgconfig.GetEnv("PIPELINE_MODE", "broad"),
			HorizonDays:       pkgconfig.GetEnvInt("PIPELINE_HORIZON_DAYS", 7),
			Workers:           pkgconfig.GetEnvInt("PIPELINE_WORKERS", 4),
			SensorWindowDays:  pkgconfig.GetEnvInt("PIPELINE_SENSOR_WINDOW_DAYS", 30),
			HistoryWindowDays: pkgconfig.GetEnvInt("PIPELINE_HISTORY_WINDOW_DAYS", 365),
			Snapshot:          pkgconfig.GetEnv("PIPELINE_SNAPSHOT", "false") == "true",
		},
		Scorer: ScorerConfig{
			Enabled: pkgconfig.GetEnv("SCORER_ENABLED", "false") == "true",
			BaseURL: pkgconfig.GetEnv("SCORER_BASE_URL", "http://localhost:8500"),
			Timeout: pkgconfig.GetEnvDuration("SCORER_TIMEOUT", 30*time.Second),
		},
		Export: ExportConfig{
			Enabled: pkgconfig.GetEnv("EXPORT_ENABLED", "false") == "true",
			Path:    pkgconfig.GetEnv("EXPORT_PATH", "predictions.xlsx"),
		},
		RunLock: RunLockConfig{
			Enabled: pkgconfig.GetEnv("RUN_LOCK_ENABLED", "false") == "true",
			Key:     pkgconfig.GetEnv("RUN_LOCK_KEY", "palantir:etl:run_lock"),
			TTL:     pkgconfig.GetEnvDuration("RUN_LOCK_TTL", 30*time.Minute),
		},
		Log: LogConfig{
			Level:  pkgconfig.GetEnv("LOG_LEVEL", "info"),
			Format: pkgconfig.GetEnv("LOG_FORMAT", "json"),
		},
	}

	cfg.SourceDB.LoadFromEnv("SOURCE_DB")
	cfg.SinkDB = cfg.SourceDB
	cfg.SinkDB.LoadFromEnv("SINK_DB")
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.MQTT.LoadFromEnv("MQTT")

	if err := cfg.loadRange(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadRange 解析可选的日期区间覆盖（YYYY-MM-DD）
func (c *Config) loadRange() error {
	parse := func(key string) (*time.Time, error) {
		v := os.Getenv(key)
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		return &t, nil
	}

	var err error
	if c.Pipeline.RangeStart, err = parse("RANGE_START"); err != nil {
		return err
	}
	if c.Pipeline.RangeEnd, err = parse("RANGE_END"); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	if c.Pipeline.Mode != "narrow" && c.Pipeline.Mode != "broad" {
		return fmt.Errorf("invalid PIPELINE_MODE %q: must be narrow or broad", c.Pipeline.Mode)
	}
	if c.Pipeline.HorizonDays <= 0 {
		return fmt.Errorf("PIPELINE_HORIZON_DAYS must be positive, got %d", c.Pipeline.HorizonDays)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("PIPELINE_WORKERS must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.RangeStart != nil && c.Pipeline.RangeEnd != nil &&
		c.Pipeline.RangeEnd.Before(*c.Pipeline.RangeStart) {
		return fmt.Errorf("RANGE_END before RANGE_START")
	}
	return nil
}

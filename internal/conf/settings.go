package conf

import (
	"fmt"

	"github.com/spf13/viper"
)

// Settings is the engine configuration.
type Settings struct {
	// ScoreThreshold is the minimum match score a detection needs to be
	// counted by presence conditions.
	ScoreThreshold float64 `mapstructure:"score_threshold"`
	// ScanInterval is the period of the full evaluation scan.
	ScanInterval Duration `mapstructure:"scan_interval"`
	// SnapshotTTL is the lifetime of cached ongoing snapshots.
	SnapshotTTL Duration `mapstructure:"snapshot_ttl"`

	Database    DatabaseSettings    `mapstructure:"database"`
	ActivityAPI ActivityAPISettings `mapstructure:"activity_api"`
	Metrics     MetricsSettings     `mapstructure:"metrics"`
	Log         LogSettings         `mapstructure:"log"`
}

// DatabaseSettings configures the datastore.
type DatabaseSettings struct {
	Path string `mapstructure:"path"`
}

// ActivityAPISettings points at the external face-processing API used to
// resolve activities.
type ActivityAPISettings struct {
	URL string `mapstructure:"url"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Addr string `mapstructure:"addr"`
}

// LogSettings configures structured logging.
type LogSettings struct {
	Level string `mapstructure:"level"`
}

// Load reads settings from the given config file, falling back to defaults
// and TRIGGERD_* environment variables.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("score_threshold", 0.75)
	v.SetDefault("scan_interval", "30s")
	v.SetDefault("snapshot_ttl", "10s")
	v.SetDefault("database.path", "triggerd.db")
	v.SetDefault("activity_api.url", "http://localhost:8100")
	v.SetDefault("metrics.addr", ":9200")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("TRIGGERD")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &settings, nil
}

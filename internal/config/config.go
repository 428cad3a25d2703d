// Package config loads the engine's tunables from a TOML file, falling back
// to the hardcoded defaults named throughout the spec (chunk size, cache
// bounds, progress throttle, etc.) when no file is present.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EngineConfig holds every engine-wide tunable.
type EngineConfig struct {
	IndexDir string `toml:"index_dir"`

	ChunkSizeBytes   int           `toml:"chunk_size_bytes"`
	ProgressInterval time.Duration `toml:"-"`
	ProgressIntervalMS int64       `toml:"progress_interval_ms"`

	RecordCacheSize   int `toml:"record_cache_size"`
	PositionCacheSize int `toml:"position_cache_size"`
	MetadataCacheSize int `toml:"metadata_cache_size"`

	RecentListSize int `toml:"recent_list_size"`

	StatsTopColumns     int `toml:"stats_top_columns"`
	StatsTopValues      int `toml:"stats_top_values"`
	StatsDistinctCap    int `toml:"stats_distinct_cap"`

	MaxDeclaredColumns int `toml:"max_declared_columns"`
	SearchableColumns  int `toml:"searchable_columns"`

	ReadinessRetryCount    int           `toml:"readiness_retry_count"`
	ReadinessRetryInterval time.Duration `toml:"-"`
	ReadinessRetryIntervalMS int64       `toml:"readiness_retry_interval_ms"`
}

// Default returns the engine's built-in defaults, matching the constants
// named throughout the spec.
func Default() EngineConfig {
	return EngineConfig{
		IndexDir:                 "indexes",
		ChunkSizeBytes:           32 << 20,
		ProgressInterval:         100 * time.Millisecond,
		ProgressIntervalMS:       100,
		RecordCacheSize:          1000,
		PositionCacheSize:        10,
		MetadataCacheSize:        20,
		RecentListSize:           20,
		StatsTopColumns:          10,
		StatsTopValues:           30,
		StatsDistinctCap:         100,
		MaxDeclaredColumns:       20,
		SearchableColumns:        6,
		ReadinessRetryCount:      3,
		ReadinessRetryInterval:   200 * time.Millisecond,
		ReadinessRetryIntervalMS: 200,
	}
}

// Load reads a TOML config file at path, overlaying it on top of Default().
// A missing file is not an error; it simply yields the defaults.
func Load(path string) (EngineConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.resolveDurations()
	return cfg, nil
}

func (c *EngineConfig) resolveDurations() {
	if c.ProgressIntervalMS > 0 {
		c.ProgressInterval = time.Duration(c.ProgressIntervalMS) * time.Millisecond
	}
	if c.ReadinessRetryIntervalMS > 0 {
		c.ReadinessRetryInterval = time.Duration(c.ReadinessRetryIntervalMS) * time.Millisecond
	}
}

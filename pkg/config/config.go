package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for darnio
type Config struct {
	Storage     StorageConfig
	Restructure RestructureConfig
	Dmap        DmapConfig
	Log         LogConfig
}

type StorageConfig struct {
	LocalPath string // Base path for the local container store
}

type RestructureConfig struct {
	Workers int // Parallel workers per restructure pass (default: CPU count)
}

type DmapConfig struct {
	Compression  string   // Compression on write: none, gzip, zstd
	EmptyAllowed []string // Array fields allowed to carry zero-length dimensions
}

type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment and config file
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("DARNIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file (optional)
	v.SetConfigName("darnio")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/darnio/")
	v.AddConfigPath("$HOME/.darnio/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{
		Storage: StorageConfig{
			LocalPath: v.GetString("storage.local_path"),
		},
		Restructure: RestructureConfig{
			Workers: v.GetInt("restructure.workers"),
		},
		Dmap: DmapConfig{
			Compression:  v.GetString("dmap.compression"),
			EmptyAllowed: v.GetStringSlice("dmap.empty_allowed"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Dmap.Compression {
	case "none", "gzip", "zstd":
	default:
		return fmt.Errorf("invalid dmap.compression %q (none, gzip, zstd)", c.Dmap.Compression)
	}
	if c.Restructure.Workers < 1 {
		return fmt.Errorf("restructure.workers must be at least 1, got %d", c.Restructure.Workers)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Storage
	v.SetDefault("storage.local_path", "./data/darnio")

	// Restructure
	v.SetDefault("restructure.workers", runtime.NumCPU())

	// Dmap
	v.SetDefault("dmap.compression", "none")
	v.SetDefault("dmap.empty_allowed", []string{"slist"})

	// Logging
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

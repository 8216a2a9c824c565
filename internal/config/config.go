package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Log struct {
		Level string
	}
	Store struct {
		Path string
		Sync bool
	}
	Activity struct {
		URL     string
		Timeout time.Duration
	}
	Journal struct {
		Path string
	}
	Archive struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
		Interval  time.Duration
	}
	AWS struct {
		Profile string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// existing environment wins over .env
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("USERFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("store.path", "data/users.txt")
	v.SetDefault("store.sync", false)
	v.SetDefault("activity.url", "https://api.example.com/activity")
	v.SetDefault("activity.timeout", "0s")
	v.SetDefault("journal.path", "data/runs.db")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.keyprefix", "userfeed")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.interval", "1h")
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Activity.Timeout < 0 {
		return Config{}, fmt.Errorf("activity.timeout must not be negative")
	}
	if cfg.Archive.Bucket != "" && cfg.Archive.Interval <= 0 {
		return Config{}, fmt.Errorf("archive.interval must be positive")
	}

	return cfg, nil
}

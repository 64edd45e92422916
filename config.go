package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds server settings. Values come from defaults, then an
// optional config file, then PLUME_* environment variables, then
// command-line flags.
type Config struct {
	ListenAddr string        `mapstructure:"listen_addr"`
	ToolAddr   string        `mapstructure:"tool_addr"`
	DBPath     string        `mapstructure:"db_path"`
	AssistURL  string        `mapstructure:"assist_url"`
	ToolSecret string        `mapstructure:"tool_secret"`
	Debounce   time.Duration `mapstructure:"debounce"`
	AssistWait time.Duration `mapstructure:"assist_timeout"`
	LogLevel   string        `mapstructure:"log_level"`
}

func loadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("tool_addr", ":8081")
	v.SetDefault("db_path", "plume.db")
	v.SetDefault("assist_url", "http://localhost:9090")
	v.SetDefault("tool_secret", "")
	v.SetDefault("debounce", 300*time.Millisecond)
	v.SetDefault("assist_timeout", 30*time.Second)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("PLUME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

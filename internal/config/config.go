package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Backup  BackupConfig  `mapstructure:"backup"`
	Jobs    []JobConfig   `mapstructure:"jobs"`
	Monitor MonitorConfig `mapstructure:"monitor"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type BackupConfig struct {
	Region           string `mapstructure:"region"`
	Endpoint         string `mapstructure:"endpoint"`
	Bucket           string `mapstructure:"bucket"`
	AccessKey        string `mapstructure:"access_key"`
	SecretKey        string `mapstructure:"secret_key"`
	Prefix           string `mapstructure:"prefix"`
	MaxRetries       int    `mapstructure:"max_retries"`
	MinRetentionDays int    `mapstructure:"min_retention_days"`
	MaxRetentionDays int    `mapstructure:"max_retention_days"`
	Compress         bool   `mapstructure:"compress"`

	Notify NotifyConfig `mapstructure:"notify"`
}

type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type JobConfig struct {
	FilePath      string `mapstructure:"file_path"`
	Cadence       string `mapstructure:"cadence"`
	Interval      int    `mapstructure:"interval"`
	RetentionDays int    `mapstructure:"retention_days"`
	Enabled       bool   `mapstructure:"enabled"`
}

type MonitorConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ListenAddr      string `mapstructure:"listen_addr"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app.name", "cloudops-backup")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("backup.region", "us-east-1")
	v.SetDefault("backup.prefix", "automated_backup")
	v.SetDefault("backup.max_retries", 3)
	v.SetDefault("backup.min_retention_days", 1)
	v.SetDefault("backup.max_retention_days", 365)
	v.SetDefault("monitor.listen_addr", ":9090")
	v.SetDefault("monitor.interval_seconds", 15)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Backup.Bucket == "" {
		return fmt.Errorf("backup.bucket is required")
	}
	if c.Backup.MaxRetries < 1 {
		return fmt.Errorf("backup.max_retries must be at least 1")
	}
	if c.Backup.MinRetentionDays < 1 {
		return fmt.Errorf("backup.min_retention_days must be at least 1")
	}
	if c.Backup.MaxRetentionDays < c.Backup.MinRetentionDays {
		return fmt.Errorf("backup.max_retention_days must be >= backup.min_retention_days")
	}

	for i, job := range c.Jobs {
		if job.FilePath == "" {
			return fmt.Errorf("jobs[%d]: file_path is required", i)
		}
		if job.Enabled && job.Cadence == "" {
			return fmt.Errorf("jobs[%d]: cadence is required when enabled", i)
		}
		if job.Enabled && job.Interval < 1 {
			return fmt.Errorf("jobs[%d]: interval must be at least 1", i)
		}
	}

	if c.Backup.Notify.Enabled && c.Backup.Notify.BotToken == "" {
		return fmt.Errorf("backup.notify.bot_token is required when notify is enabled")
	}

	return nil
}

func (c *Config) GetEnabledJobs() []JobConfig {
	var enabled []JobConfig
	for _, job := range c.Jobs {
		if job.Enabled {
			enabled = append(enabled, job)
		}
	}
	return enabled
}

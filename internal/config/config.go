package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env"
)

// Config holds all configuration for the service
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	GinMode     string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	RedisURL    string `env:"REDIS_URL"` // 为空时关闭指令统计
	AdminAPIKey string `env:"ADMIN_API_KEY"`
	// 逗号分隔，为空时允许任意来源
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	BangumiAPIBase   string `env:"BANGUMI_API_BASE" envDefault:"https://api.bgm.tv"`
	BangumiUserAgent string `env:"BANGUMI_USER_AGENT"`
	RequestTimeout   int    `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"10"`
	SearchLimit      int    `env:"SEARCH_LIMIT" envDefault:"10"`

	// 文转图服务，为空时只回复文本
	T2IEndpoint     string `env:"T2I_ENDPOINT"`
	T2ITimeout      int    `env:"T2I_TIMEOUT_SECONDS" envDefault:"60"`
	DayTemplatePath string `env:"DAY_TEMPLATE_PATH"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment variables: %w", err)
	}

	cfg.BangumiAPIBase = strings.TrimRight(strings.TrimSpace(cfg.BangumiAPIBase), "/")
	cfg.T2IEndpoint = strings.TrimSpace(cfg.T2IEndpoint)
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive, got %d", cfg.RequestTimeout)
	}
	if cfg.T2ITimeout <= 0 {
		return nil, fmt.Errorf("T2I_TIMEOUT_SECONDS must be positive, got %d", cfg.T2ITimeout)
	}
	if cfg.SearchLimit <= 0 {
		return nil, fmt.Errorf("SEARCH_LIMIT must be positive, got %d", cfg.SearchLimit)
	}
	return cfg, nil
}

// Timeout is the upstream request timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// RenderTimeout is the image render request timeout.
// Full-page screenshots are much slower than API calls.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.T2ITimeout) * time.Second
}

// AnalyticsEnabled reports whether a Redis URL is configured
func (c *Config) AnalyticsEnabled() bool {
	return strings.TrimSpace(c.RedisURL) != ""
}

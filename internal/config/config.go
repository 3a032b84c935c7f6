// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config 应用程序配置
type Config struct {
	// 服务器配置
	Addr string `toml:"addr" validate:"required"`

	// HTTP 客户端配置
	HTTPTimeout     Duration `toml:"http_timeout"`
	ConnectTimeout  Duration `toml:"connect_timeout"`
	MaxConns        int      `toml:"max_conns" validate:"gt=0"`
	MaxConnsPerHost int      `toml:"max_conns_per_host" validate:"gt=0"`
	DNSCacheTTL     Duration `toml:"dns_cache_ttl"`
	UserAgent       string   `toml:"user_agent"`
	RandomUserAgent bool     `toml:"random_user_agent"`

	// 数据源配置
	ProviderAURL  string `toml:"provider_a_url" validate:"omitempty,url"`
	ProviderBURL  string `toml:"provider_b_url" validate:"omitempty,url"`
	MaxMindDBPath string `toml:"maxmind_db_path"`
	IPInfoToken   string `toml:"ipinfo_token"`

	// 日志配置
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

// Duration 支持 "10s" 形式的 TOML 字段
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Addr:            ":8099",
		HTTPTimeout:     Duration{10 * time.Second},
		ConnectTimeout:  Duration{5 * time.Second},
		MaxConns:        10,
		MaxConnsPerHost: 5,
		DNSCacheTTL:     Duration{300 * time.Second},
		ProviderAURL:    ProviderAEndpoint,
		ProviderBURL:    ProviderBEndpoint,
		LogLevel:        "info",
	}
}

// Load 依次应用默认值、TOML 配置文件（path 为空或文件不存在时跳过）、环境变量
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("decode config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 环境变量覆盖
func (c *Config) applyEnv() {
	c.Addr = getEnv("ADDR", c.Addr)
	c.HTTPTimeout.Duration = getEnvAsDuration("HTTP_TIMEOUT", c.HTTPTimeout.Duration)
	c.ConnectTimeout.Duration = getEnvAsDuration("CONNECT_TIMEOUT", c.ConnectTimeout.Duration)
	c.MaxConns = getEnvAsInt("MAX_CONNS", c.MaxConns)
	c.MaxConnsPerHost = getEnvAsInt("MAX_CONNS_PER_HOST", c.MaxConnsPerHost)
	c.DNSCacheTTL.Duration = getEnvAsDuration("DNS_CACHE_TTL", c.DNSCacheTTL.Duration)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
	c.RandomUserAgent = getEnvAsBool("RANDOM_USER_AGENT", c.RandomUserAgent)
	c.ProviderAURL = getEnv("PROVIDER_A_URL", c.ProviderAURL)
	c.ProviderBURL = getEnv("PROVIDER_B_URL", c.ProviderBURL)
	c.MaxMindDBPath = getEnv("MAXMIND_DB_PATH", c.MaxMindDBPath)
	c.IPInfoToken = getEnv("IPINFO_TOKEN", c.IPInfoToken)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
}

var validate = validator.New()

// Validate 检查取值范围; 字段规则见 validate tag，时间间隔单独检查
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch {
	case c.HTTPTimeout.Duration <= 0:
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	case c.ConnectTimeout.Duration <= 0:
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	case c.DNSCacheTTL.Duration < 0:
		return fmt.Errorf("dns_cache_ttl must not be negative, got %s", c.DNSCacheTTL)
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt 获取环境变量并转换为整数
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool 获取环境变量并转换为布尔值
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration 获取环境变量并转换为时间间隔
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

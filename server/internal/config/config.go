package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 全局配置。
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Onboarding OnboardingConfig `yaml:"onboarding"`
	I18N       I18NConfig       `yaml:"i18n"`
	Paths      PathsConfig      `yaml:"paths"`
	CORS       CORSConfig       `yaml:"cors"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StorageConfig 会话快照的持久化后端。
// backend: memory | sqlite | redis。
type StorageConfig struct {
	Backend    string        `yaml:"backend"`
	SQLitePath string        `yaml:"sqlite_path"`
	Redis      RedisConfig   `yaml:"redis"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type GatewayConfig struct {
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// OnboardingConfig 引导对话的节奏参数。零值取引擎默认（1s/2s）。
type OnboardingConfig struct {
	TypingDelay       time.Duration `yaml:"typing_delay"`
	AutoCompleteDelay time.Duration `yaml:"auto_complete_delay"`
}

type I18NConfig struct {
	DefaultLocale string `yaml:"default_locale"`
}

type PathsConfig struct {
	Content string `yaml:"content"`
	Locales string `yaml:"locales"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load 从文件加载配置，再用环境变量覆盖部署相关的值。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// 敏感信息与部署差异项从环境变量覆盖。
	if v := os.Getenv("PREBUNK_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("PREBUNK_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("PREBUNK_REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
	}
	if v := os.Getenv("PREBUNK_REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv("PREBUNK_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse PREBUNK_REDIS_DB: %w", err)
		}
		cfg.Storage.Redis.DB = db
	}
	if v := os.Getenv("PREBUNK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse PREBUNK_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.I18N.DefaultLocale == "" {
		c.I18N.DefaultLocale = "en"
	}
}

// Validate 校验必需配置。
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for sqlite backend")
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for redis backend (or set PREBUNK_REDIS_ADDR)")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Paths.Content == "" {
		return fmt.Errorf("paths.content is required")
	}
	if c.Paths.Locales == "" {
		return fmt.Errorf("paths.locales is required")
	}
	return nil
}

// Addr 监听地址。
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

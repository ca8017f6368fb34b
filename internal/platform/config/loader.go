package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"magic-mirror-server/internal/platform/errors"
)

// DefaultSearchPaths 依次查找的配置文件，找到第一个即停止
var DefaultSearchPaths = []string{".config.yaml", "config.yaml"}

// Loader 负责读取配置文件、.env 以及环境变量覆盖
type Loader struct {
	useDotEnv bool
	paths     []string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that reads the default search paths and the process environment.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		paths:     DefaultSearchPaths,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPaths overrides the config file search list.
func (l *Loader) WithPaths(paths ...string) *Loader {
	if len(paths) > 0 {
		l.paths = paths
	}
	return l
}

// WithEnv replaces the environment lookup (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	// Path 为 "default" 表示未找到配置文件
	Path string
}

// Load 按 默认值 -> 配置文件 -> 环境变量 的顺序合并配置
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(errors.KindConfig, "config.dotenv", "failed to parse .env", err)
		}
	}

	cfg := DefaultConfig()
	path := "default"
	for _, candidate := range l.paths {
		data, err := os.ReadFile(candidate)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrap(errors.KindConfig, "config.read", "failed to read "+candidate, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.parse", "failed to parse "+candidate, err)
		}
		path = candidate
		break
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

func (l *Loader) env(key string) (string, bool) {
	v, ok := l.lookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.env("OPENROUTER_API_KEY"); ok {
		cfg.Vision.APIKey = v
	}
	if v, ok := l.env("ELEVENLABS_API_KEY"); ok {
		cfg.Speech.ElevenLabs.APIKey = v
	}
	if v, ok := l.env("APP_URL"); ok {
		cfg.Server.AppURL = v
	}
	// NEXT_PUBLIC_APP_URL 优先于 APP_URL，兼容原有部署的环境变量
	if v, ok := l.env("NEXT_PUBLIC_APP_URL"); ok {
		cfg.Server.AppURL = v
	}
	if v, ok := l.env("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := l.env("MIRROR_AUTH_SECRET"); ok {
		cfg.Server.Auth.Secret = v
	}
	if v, ok := l.env("REDIS_ADDR"); ok {
		cfg.AudioCache.Redis.Addr = v
	}
	if v, ok := l.env("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.KindConfig, "config.env", "PORT must be an integer", err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New(errors.KindConfig, "config.validate", fmt.Sprintf("invalid server port: %d", cfg.Server.Port))
	}
	if cfg.Vision.MaxTokens <= 0 {
		return errors.New(errors.KindConfig, "config.validate", "vision.max_tokens must be positive")
	}
	if cfg.Vision.Timeout <= 0 || cfg.Speech.Timeout <= 0 {
		return errors.New(errors.KindConfig, "config.validate", "vision.timeout and speech.timeout must be positive")
	}
	switch cfg.Speech.Provider {
	case "elevenlabs", "edge":
	default:
		return errors.New(errors.KindConfig, "config.validate", "unsupported speech provider: "+cfg.Speech.Provider)
	}
	if cfg.AudioCache.Enabled {
		switch cfg.AudioCache.Driver {
		case "memory", "redis":
		case "sqlite":
			if cfg.Storage.SQLiteDSN == "" {
				return errors.New(errors.KindConfig, "config.validate", "audio_cache.driver sqlite requires storage.sqlite_dsn")
			}
		default:
			return errors.New(errors.KindConfig, "config.validate", "unsupported audio cache driver: "+cfg.AudioCache.Driver)
		}
	}
	if cfg.Server.Auth.Enabled && cfg.Server.Auth.Secret == "" {
		return errors.New(errors.KindConfig, "config.validate", "server.auth.secret is required when auth is enabled")
	}
	return nil
}

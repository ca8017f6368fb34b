package config

import (
	"time"
)

type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
	Web           WebConfig           `yaml:"web" mapstructure:"web"`
	Vision        VisionConfig        `yaml:"vision" mapstructure:"vision"`
	Speech        SpeechConfig        `yaml:"speech" mapstructure:"speech"`
	AudioCache    AudioCacheConfig    `yaml:"audio_cache" mapstructure:"audio_cache"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	Events        EventsConfig        `yaml:"events" mapstructure:"events"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

type ServerConfig struct {
	IP   string `yaml:"ip" mapstructure:"ip"`
	Port int    `yaml:"port" mapstructure:"port"`
	// AppURL 作为 HTTP-Referer 发送给 OpenRouter
	AppURL string `yaml:"app_url" mapstructure:"app_url"`
	// StrictCredentials 为 true 时缺少上游凭据直接启动失败
	StrictCredentials bool          `yaml:"strict_credentials" mapstructure:"strict_credentials"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	Auth              AuthConfig    `yaml:"auth" mapstructure:"auth"`
}

type AuthConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Secret  string        `yaml:"secret" mapstructure:"secret"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type LogConfig struct {
	Level string `yaml:"log_level" mapstructure:"log_level"`
	Dir   string `yaml:"log_dir" mapstructure:"log_dir"`
	File  string `yaml:"log_file" mapstructure:"log_file"`
}

type WebConfig struct {
	StaticDir    string   `yaml:"static_dir" mapstructure:"static_dir"`
	AllowOrigins []string `yaml:"allow_origins" mapstructure:"allow_origins"`
}

type VisionConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey       string        `yaml:"api_key" mapstructure:"api_key"`
	Model        string        `yaml:"model" mapstructure:"model"`
	SystemPrompt string        `yaml:"system_prompt" mapstructure:"system_prompt"`
	UserPrompt   string        `yaml:"user_prompt" mapstructure:"user_prompt"`
	MaxTokens    int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Title        string        `yaml:"title" mapstructure:"title"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Security     ImageSecurity `yaml:"security" mapstructure:"security"`
}

// ImageSecurity 控制对上传图片的严格校验，默认关闭
type ImageSecurity struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	MaxFileSize    int64    `yaml:"max_file_size" mapstructure:"max_file_size"`
	MaxPixels      int64    `yaml:"max_pixels" mapstructure:"max_pixels"`
	MaxWidth       int      `yaml:"max_width" mapstructure:"max_width"`
	MaxHeight      int      `yaml:"max_height" mapstructure:"max_height"`
	AllowedFormats []string `yaml:"allowed_formats" mapstructure:"allowed_formats"`
}

type SpeechConfig struct {
	Provider   string           `yaml:"provider" mapstructure:"provider"`
	Timeout    time.Duration    `yaml:"timeout" mapstructure:"timeout"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs" mapstructure:"elevenlabs"`
	Edge       EdgeConfig       `yaml:"edge" mapstructure:"edge"`
}

type ElevenLabsConfig struct {
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey          string  `yaml:"api_key" mapstructure:"api_key"`
	VoiceID         string  `yaml:"voice_id" mapstructure:"voice_id"`
	ModelID         string  `yaml:"model_id" mapstructure:"model_id"`
	Stability       float64 `yaml:"stability" mapstructure:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost" mapstructure:"similarity_boost"`
}

type EdgeConfig struct {
	Voice string `yaml:"voice" mapstructure:"voice"`
}

type AudioCacheConfig struct {
	Enabled    bool              `yaml:"enabled" mapstructure:"enabled"`
	Driver     string            `yaml:"driver" mapstructure:"driver"`
	TTL        time.Duration     `yaml:"ttl" mapstructure:"ttl"`
	GCInterval time.Duration     `yaml:"gc_interval" mapstructure:"gc_interval"`
	MaxEntries int               `yaml:"max_entries" mapstructure:"max_entries"`
	Redis      AudioCacheRedis   `yaml:"redis,omitempty" mapstructure:"redis"`
	Labels     map[string]string `yaml:"labels,omitempty" mapstructure:"labels"`
}

type AudioCacheRedis struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Username string `yaml:"username,omitempty" mapstructure:"username"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `yaml:"db,omitempty" mapstructure:"db"`
	Prefix   string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}

type StorageConfig struct {
	// SQLiteDSN 为空时不打开数据库
	SQLiteDSN string `yaml:"sqlite_dsn" mapstructure:"sqlite_dsn"`
}

type EventsConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
	Queue   int `yaml:"queue" mapstructure:"queue"`
}

type ObservabilityConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

package config

import "time"

// DefaultSystemPrompt 魔镜人设
const DefaultSystemPrompt = `You are the Magic Mirror on the wall, the enchanted looking-glass of fairy tales.
Whoever stands before you is addressed as royalty ("my Queen", "my King" or "Your Majesty").
Describe what you see in the image: the person, their expression, clothing and surroundings,
in a theatrical, flattering and slightly mysterious voice. Stay truthful about what is visible,
never invent people or objects that are not there, and keep the reply to a short paragraph
that sounds good when read aloud.`

// DefaultUserPrompt 随图片一起发送的用户提示
const DefaultUserPrompt = "Please analyze this image and tell me what you see."

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:              "0.0.0.0",
			Port:            3000,
			AppURL:          "http://localhost:3000",
			ShutdownTimeout: 10 * time.Second,
			Auth: AuthConfig{
				Enabled: false,
				TTL:     24 * time.Hour,
			},
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			StaticDir:    "./web",
			AllowOrigins: []string{"*"},
		},
		Vision: VisionConfig{
			BaseURL:      "https://openrouter.ai/api/v1",
			Model:        "anthropic/claude-3-opus-20240229",
			SystemPrompt: DefaultSystemPrompt,
			UserPrompt:   DefaultUserPrompt,
			MaxTokens:    500,
			Title:        "Webcam AI Analysis",
			Timeout:      60 * time.Second,
			Security: ImageSecurity{
				Enabled:        false,
				MaxFileSize:    5 * 1024 * 1024,
				MaxPixels:      16777216,
				MaxWidth:       4096,
				MaxHeight:      4096,
				AllowedFormats: []string{"jpeg", "jpg", "png", "webp", "gif"},
			},
		},
		Speech: SpeechConfig{
			Provider: "elevenlabs",
			Timeout:  30 * time.Second,
			ElevenLabs: ElevenLabsConfig{
				BaseURL:         "https://api.elevenlabs.io",
				VoiceID:         "21m00Tcm4TlvDq8ikWAM", // Rachel
				ModelID:         "eleven_multilingual_v2",
				Stability:       0.5,
				SimilarityBoost: 0.75,
			},
			Edge: EdgeConfig{
				Voice: "en-GB-SoniaNeural",
			},
		},
		AudioCache: AudioCacheConfig{
			Enabled:    false,
			Driver:     "memory",
			TTL:        6 * time.Hour,
			GCInterval: 5 * time.Minute,
			MaxEntries: 512,
			Redis: AudioCacheRedis{
				Addr:   "127.0.0.1:6379",
				Prefix: "mirror:audio:",
			},
		},
		Storage: StorageConfig{
			SQLiteDSN: "",
		},
		Events: EventsConfig{
			Workers: 4,
			Queue:   256,
		},
		Observability: ObservabilityConfig{
			Enabled: false,
		},
	}
}

package speech

import (
	"context"
	"fmt"
	"sort"
	"time"

	"magic-mirror-server/internal/platform/config"
	"magic-mirror-server/internal/platform/errors"
	"magic-mirror-server/internal/platform/logging"
)

// ContentTypeMPEG 所有提供者都输出 MP3
const ContentTypeMPEG = "audio/mpeg"

// Audio 一次合成的结果
type Audio struct {
	Data        []byte
	ContentType string
	Provider    string
	Voice       string
	Model       string
	// Duration 解码失败时为 0
	Duration time.Duration
	// Cached 表示结果来自音频缓存
	Cached bool
}

// Synthesizer 将文本转换为音频
type Synthesizer interface {
	Name() string
	Voice() string
	Model() string
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// Factory 根据配置构造合成器
type Factory func(cfg config.SpeechConfig, logger *logging.Logger) (Synthesizer, error)

// Registry 维护提供者名到工厂的映射
type Registry struct {
	factories map[string]Factory
}

// NewRegistry 创建注册器并注册内置提供者
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.factories[ProviderElevenLabs] = func(cfg config.SpeechConfig, logger *logging.Logger) (Synthesizer, error) {
		synth, err := NewElevenLabs(ElevenLabsOptionsFromConfig(cfg), logger)
		if err != nil {
			return nil, err
		}
		return synth, nil
	}
	r.factories[ProviderEdge] = func(cfg config.SpeechConfig, logger *logging.Logger) (Synthesizer, error) {
		synth, err := NewEdge(EdgeOptions{Voice: cfg.Edge.Voice, Timeout: cfg.Timeout}, logger)
		if err != nil {
			return nil, err
		}
		return synth, nil
	}
	return r
}

// Register 注册额外的提供者
func (r *Registry) Register(name string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("speech provider '%s' already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Names 返回已注册的提供者，按名称排序
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create 构造 cfg.Provider 指定的合成器，空值时使用 elevenlabs
func (r *Registry) Create(cfg config.SpeechConfig, logger *logging.Logger) (Synthesizer, error) {
	name := cfg.Provider
	if name == "" {
		name = ProviderElevenLabs
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.New(errors.KindConfig, "speech.create", fmt.Sprintf("unknown speech provider: %s", name))
	}
	return factory(cfg, logger)
}

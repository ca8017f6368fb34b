package speech

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"magic-mirror-server/internal/platform/config"
	"magic-mirror-server/internal/platform/errors"
	"magic-mirror-server/internal/platform/logging"
	"magic-mirror-server/internal/platform/observability"
)

const (
	ProviderElevenLabs = "elevenlabs"

	elevenLabsBaseURL = "https://api.elevenlabs.io"
	elevenLabsVoice   = "21m00Tcm4TlvDq8ikWAM"
	elevenLabsModel   = "eleven_multilingual_v2"
)

// ElevenLabsOptions 配置 ElevenLabs text-to-speech 调用
type ElevenLabsOptions struct {
	BaseURL         string
	APIKey          string
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
	Timeout         time.Duration
	HTTPClient      *http.Client
}

func ElevenLabsOptionsFromConfig(cfg config.SpeechConfig) ElevenLabsOptions {
	return ElevenLabsOptions{
		BaseURL:         cfg.ElevenLabs.BaseURL,
		APIKey:          cfg.ElevenLabs.APIKey,
		VoiceID:         cfg.ElevenLabs.VoiceID,
		ModelID:         cfg.ElevenLabs.ModelID,
		Stability:       cfg.ElevenLabs.Stability,
		SimilarityBoost: cfg.ElevenLabs.SimilarityBoost,
		Timeout:         cfg.Timeout,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type ttsPayload struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// ElevenLabs 调用 /v1/text-to-speech/{voice_id}，响应体原样作为 MP3 返回
type ElevenLabs struct {
	client *resty.Client
	opts   ElevenLabsOptions
	logger *logging.Logger
}

// NewElevenLabs 缺少 API key 时返回 config 类错误
func NewElevenLabs(opts ElevenLabsOptions, logger *logging.Logger) (*ElevenLabs, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New(errors.KindConfig, "speech.elevenlabs", "Missing ELEVENLABS_API_KEY environment variable")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = elevenLabsBaseURL
	}
	if opts.VoiceID == "" {
		opts.VoiceID = elevenLabsVoice
	}
	if opts.ModelID == "" {
		opts.ModelID = elevenLabsModel
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}

	var client *resty.Client
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	} else {
		client = resty.New()
	}
	client.
		SetDebug(false).
		SetRetryCount(0).
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeaders(map[string]string{
			"Content-Type": "application/json",
			"xi-api-key":   opts.APIKey,
		})

	return &ElevenLabs{client: client, opts: opts, logger: logger}, nil
}

func (e *ElevenLabs) Name() string  { return ProviderElevenLabs }
func (e *ElevenLabs) Voice() string { return e.opts.VoiceID }
func (e *ElevenLabs) Model() string { return e.opts.ModelID }

// Synthesize 非 2xx 或网络错误归为 upstream
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (audio *Audio, err error) {
	if text == "" {
		return nil, errors.New(errors.KindInput, "speech.elevenlabs", "text is empty")
	}
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	ctx, end := observability.StartSpan(ctx, "speech.elevenlabs", e.opts.VoiceID)
	defer func() { end(err) }()

	start := time.Now()
	res, err := handleError(e.client.NewRequest().
		SetContext(ctx).
		SetPathParam("voiceId", e.opts.VoiceID).
		SetBody(ttsPayload{
			Text:    text,
			ModelID: e.opts.ModelID,
			VoiceSettings: voiceSettings{
				Stability:       e.opts.Stability,
				SimilarityBoost: e.opts.SimilarityBoost,
			},
		}).
		Post("/v1/text-to-speech/{voiceId}"))
	if err != nil {
		status := 0
		if res != nil {
			status = res.StatusCode()
			e.logger.WarnTag("语音", "ElevenLabs 返回错误 status=%d body=%s", status, truncate(res.String(), 200))
		} else {
			e.logger.WarnTag("语音", "ElevenLabs 请求失败: %v", err)
		}
		return nil, errors.Wrap(errors.KindUpstream, "speech.elevenlabs", "text-to-speech failed", err)
	}

	data := res.Body()
	audio = &Audio{
		Data:        data,
		ContentType: ContentTypeMPEG,
		Provider:    ProviderElevenLabs,
		Voice:       e.opts.VoiceID,
		Model:       e.opts.ModelID,
	}
	if d, ok := ProbeDuration(data); ok {
		audio.Duration = d
	}
	e.logger.InfoTag("语音", "合成完成 voice=%s bytes=%d 音频时长=%s 耗时=%s", e.opts.VoiceID, len(data), audio.Duration, time.Since(start))
	return audio, nil
}

// handleError 将非 2xx 响应转为错误，resty 默认只在网络层失败时返回 error
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return nil, err
	}
	if !res.IsSuccess() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}
	return res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

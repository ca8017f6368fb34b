package vision

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"magic-mirror-server/internal/platform/config"
	"magic-mirror-server/internal/platform/errors"
	"magic-mirror-server/internal/platform/logging"
	"magic-mirror-server/internal/platform/observability"
)

// Options 配置一次视觉分析调用
type Options struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	// Referer 与 Title 以 HTTP-Referer / X-Title 头发送，OpenRouter 用于应用归属
	Referer string
	Title   string
	Timeout time.Duration
	// HTTPClient 为空时使用带 header 注入的默认客户端
	HTTPClient *http.Client
}

// OptionsFromConfig 从全局配置构造 Options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:      cfg.Vision.BaseURL,
		APIKey:       cfg.Vision.APIKey,
		Model:        cfg.Vision.Model,
		SystemPrompt: cfg.Vision.SystemPrompt,
		UserPrompt:   cfg.Vision.UserPrompt,
		MaxTokens:    cfg.Vision.MaxTokens,
		Referer:      cfg.Server.AppURL,
		Title:        cfg.Vision.Title,
		Timeout:      cfg.Vision.Timeout,
	}
}

// Analyzer 通过 OpenAI 兼容的 chat completion 接口描述图片
type Analyzer struct {
	client *openai.Client
	opts   Options
	logger *logging.Logger
}

// NewAnalyzer 缺少凭据时返回 config 类错误
func NewAnalyzer(opts Options, logger *logging.Logger) (*Analyzer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New(errors.KindConfig, "vision.new", "Missing OPENROUTER_API_KEY environment variable")
	}
	if opts.Model == "" {
		return nil, errors.New(errors.KindConfig, "vision.new", "vision model is required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	if opts.UserPrompt == "" {
		opts.UserPrompt = config.DefaultUserPrompt
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = config.DefaultSystemPrompt
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *httpClient
	wrapped.Transport = &headerTransport{
		base: base,
		headers: map[string]string{
			"HTTP-Referer": opts.Referer,
			"X-Title":      opts.Title,
		},
	}

	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	clientConfig.HTTPClient = &wrapped

	return &Analyzer{
		client: openai.NewClientWithConfig(clientConfig),
		opts:   opts,
		logger: logger,
	}, nil
}

// Model 返回使用的模型名
func (a *Analyzer) Model() string {
	return a.opts.Model
}

// Analyze 发送图片并返回首个 choice 的文本。
// 错误类型：上游失败为 upstream，响应缺少内容为 response。
func (a *Analyzer) Analyze(ctx context.Context, imageURL string) (result string, err error) {
	if imageURL == "" {
		return "", errors.New(errors.KindInput, "vision.analyze", "image is empty")
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}
	ctx, end := observability.StartSpan(ctx, "vision.analyze", a.opts.Model)
	defer func() { end(err) }()

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, a.buildRequest(imageURL))
	if err != nil {
		a.logger.WarnTag("视觉", "chat completion 调用失败 model=%s status=%d: %v", a.opts.Model, statusOf(err), err)
		return "", errors.Wrap(errors.KindUpstream, "vision.analyze", "chat completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(errors.KindResponse, "vision.analyze", "No analysis received from AI model")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errors.New(errors.KindResponse, "vision.analyze", "No analysis received from AI model")
	}

	a.logger.InfoTag("视觉", "分析完成 model=%s tokens=%d 耗时=%s", a.opts.Model, resp.Usage.TotalTokens, time.Since(start))
	return content, nil
}

func (a *Analyzer) buildRequest(imageURL string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: a.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: a.opts.SystemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: a.opts.UserPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: imageURL,
						},
					},
				},
			},
		},
		MaxTokens: a.opts.MaxTokens,
	}
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// headerTransport 为每个请求追加固定 header
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			clone.Header.Set(k, v)
		}
	}
	resp, err := t.base.RoundTrip(clone)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Host, err)
	}
	return resp, nil
}

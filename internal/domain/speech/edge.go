package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"magic-mirror-server/internal/platform/errors"
	"magic-mirror-server/internal/platform/logging"
	"magic-mirror-server/internal/platform/observability"
)

const (
	ProviderEdge = "edge"

	edgeDefaultVoice = "en-GB-SoniaNeural"
)

type EdgeOptions struct {
	Voice   string
	Timeout time.Duration
}

// Edge 使用微软 Edge 在线语音，无需 API key
type Edge struct {
	opts   EdgeOptions
	logger *logging.Logger
	stream func(text, voice string) ([]byte, error)
}

func NewEdge(opts EdgeOptions, logger *logging.Logger) (*Edge, error) {
	if opts.Voice == "" {
		opts.Voice = edgeDefaultVoice
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Edge{opts: opts, logger: logger, stream: edgeStream}, nil
}

func edgeStream(text, voice string) ([]byte, error) {
	conn, err := edge_tts.NewCommunicate(text, edge_tts.SetVoice(voice))
	if err != nil {
		return nil, fmt.Errorf("create edge-tts communicate: %w", err)
	}
	data, err := conn.Stream()
	if err != nil {
		return nil, fmt.Errorf("edge-tts stream: %w", err)
	}
	return data, nil
}

func (e *Edge) Name() string  { return ProviderEdge }
func (e *Edge) Voice() string { return e.opts.Voice }
func (e *Edge) Model() string { return "" }

// Synthesize edge-tts 不接受 context，超时或取消时直接返回，后台连接自行结束
func (e *Edge) Synthesize(ctx context.Context, text string) (audio *Audio, err error) {
	if text == "" {
		return nil, errors.New(errors.KindInput, "speech.edge", "text is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.KindUpstream, "speech.edge", "request cancelled", err)
	}
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	ctx, end := observability.StartSpan(ctx, "speech.edge", e.opts.Voice)
	defer func() { end(err) }()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		data, err := e.stream(text, e.opts.Voice)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		e.logger.WarnTag("语音", "Edge 合成超时或被取消 voice=%s: %v", e.opts.Voice, ctx.Err())
		return nil, errors.Wrap(errors.KindUpstream, "speech.edge", "text-to-speech cancelled", ctx.Err())
	case r := <-done:
		if r.err != nil {
			e.logger.WarnTag("语音", "Edge 合成失败 voice=%s: %v", e.opts.Voice, r.err)
			return nil, errors.Wrap(errors.KindUpstream, "speech.edge", "text-to-speech failed", r.err)
		}
		if len(r.data) == 0 {
			return nil, errors.New(errors.KindResponse, "speech.edge", "empty audio stream")
		}
		audio = &Audio{
			Data:        r.data,
			ContentType: ContentTypeMPEG,
			Provider:    ProviderEdge,
			Voice:       e.opts.Voice,
		}
		if d, ok := ProbeDuration(r.data); ok {
			audio.Duration = d
		}
		e.logger.InfoTag("语音", "合成完成 provider=edge voice=%s bytes=%d 耗时=%s", e.opts.Voice, len(r.data), time.Since(start))
		return audio, nil
	}
}

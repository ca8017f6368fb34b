package speak

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"magic-mirror-server/internal/domain/eventbus"
	"magic-mirror-server/internal/domain/speech"
	"magic-mirror-server/internal/platform/errors"
	"magic-mirror-server/internal/platform/logging"
	httptransport "magic-mirror-server/internal/transport/http"
)

// Service /api/speak 的 HTTP 传输层实现
type Service struct {
	synth  speech.Synthesizer
	bus    eventbus.Bus
	logger *logging.Logger
	// unavailable 非空时先于请求体解析返回 500
	unavailable error
}

func NewService(synth speech.Synthesizer, bus eventbus.Bus, logger *logging.Logger) (*Service, error) {
	if synth == nil {
		return nil, errors.New(errors.KindConfig, "speak.new", "synthesizer is required")
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{synth: synth, bus: bus, logger: logger}, nil
}

// NewUnavailableService 缺少凭据时使用
func NewUnavailableService(cause error, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Service{bus: eventbus.Nop{}, logger: logger, unavailable: cause}
}

func (s *Service) Available() bool {
	return s.unavailable == nil
}

// Register 注册语音路由
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.POST("/speak", s.handleSpeak)
	if s.Available() {
		s.logger.InfoTag("HTTP", "语音服务路由注册完成 provider=%s voice=%s", s.synth.Name(), s.synth.Voice())
	} else {
		s.logger.WarnTag("HTTP", "语音服务以不可用模式注册: %v", s.unavailable)
	}
	return nil
}

// handleSpeak 将文本转换为 MP3
// @Summary 文本转语音
// @Description 调用 TTS 提供者合成语音，响应体为 audio/mpeg
// @Tags Mirror
// @Accept json
// @Produce audio/mpeg
// @Param body body SpeakRequest true "要朗读的文本"
// @Success 200 {file} binary "MP3 音频"
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /speak [post]
func (s *Service) handleSpeak(c *gin.Context) {
	rid := httptransport.RequestID(c)

	if !s.Available() {
		s.logger.ErrorTag("语音", "语音服务不可用 rid=%s: %v", rid, s.unavailable)
		httptransport.RespondError(c, http.StatusInternalServerError, msgMissingKey)
		return
	}

	var req SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.WarnTag("语音", "请求体解析失败 rid=%s: %v", rid, err)
		httptransport.RespondError(c, http.StatusInternalServerError, msgFailed)
		return
	}
	if req.Text == "" {
		httptransport.RespondError(c, http.StatusBadRequest, msgNoText)
		return
	}

	start := time.Now()
	audio, err := s.synth.Synthesize(c.Request.Context(), req.Text)
	if err != nil {
		kind := errors.KindOf(err)
		s.bus.PublishAsync(eventbus.EventSpeechFailed, eventbus.SpeechEventData{
			RequestID: rid,
			Provider:  s.synth.Name(),
			Voice:     s.synth.Voice(),
			TextChars: len(req.Text),
			Duration:  time.Since(start),
			Error:     string(kind),
		})
		if kind == errors.KindInput {
			httptransport.RespondError(c, http.StatusBadRequest, msgNoText)
			return
		}
		s.logger.ErrorTag("语音", "合成失败 rid=%s kind=%s: %v", rid, kind, err)
		httptransport.RespondError(c, http.StatusInternalServerError, msgFailed)
		return
	}

	s.bus.PublishAsync(eventbus.EventSpeechCompleted, eventbus.SpeechEventData{
		RequestID:  rid,
		Provider:   audio.Provider,
		Voice:      audio.Voice,
		TextChars:  len(req.Text),
		AudioBytes: len(audio.Data),
		Cached:     audio.Cached,
		Duration:   time.Since(start),
	})

	if audio.Duration > 0 {
		c.Header(headerDuration, strconv.FormatInt(audio.Duration.Milliseconds(), 10))
	}
	if audio.Cached {
		c.Header(headerCache, "hit")
	}
	c.Header("Content-Length", strconv.Itoa(len(audio.Data)))
	c.Data(http.StatusOK, speech.ContentTypeMPEG, audio.Data)
}

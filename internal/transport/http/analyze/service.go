package analyze

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"magic-mirror-server/internal/domain/eventbus"
	domainimage "magic-mirror-server/internal/domain/image"
	"magic-mirror-server/internal/platform/errors"
	"magic-mirror-server/internal/platform/logging"
	httptransport "magic-mirror-server/internal/transport/http"
)

// Analyzer 视觉分析能力
type Analyzer interface {
	Analyze(ctx context.Context, imageURL string) (string, error)
	Model() string
}

// Inspector 转发前检查图片
type Inspector interface {
	Inspect(ctx context.Context, raw string) (*domainimage.Inspection, error)
}

// Service /api/analyze 的 HTTP 传输层实现
type Service struct {
	analyzer  Analyzer
	inspector Inspector
	bus       eventbus.Bus
	logger    *logging.Logger
	// unavailable 非空时所有请求返回 500
	unavailable error
}

// NewService 创建分析服务，bus 为空时不发布事件
func NewService(analyzer Analyzer, inspector Inspector, bus eventbus.Bus, logger *logging.Logger) (*Service, error) {
	if analyzer == nil {
		return nil, errors.New(errors.KindConfig, "analyze.new", "analyzer is required")
	}
	if inspector == nil {
		return nil, errors.New(errors.KindConfig, "analyze.new", "image inspector is required")
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{analyzer: analyzer, inspector: inspector, bus: bus, logger: logger}, nil
}

// NewUnavailableService 上游凭据缺失时使用，保持接口的错误契约
func NewUnavailableService(cause error, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Service{bus: eventbus.Nop{}, logger: logger, unavailable: cause}
}

// Available 报告上游是否已配置
func (s *Service) Available() bool {
	return s.unavailable == nil
}

// Register 注册分析路由
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.POST("/analyze", s.handleAnalyze)
	if s.Available() {
		s.logger.InfoTag("HTTP", "分析服务路由注册完成 model=%s", s.analyzer.Model())
	} else {
		s.logger.WarnTag("HTTP", "分析服务以不可用模式注册: %v", s.unavailable)
	}
	return nil
}

// handleAnalyze 描述摄像头画面
// @Summary 分析图片
// @Description 将 data URL 形式的图片发送给视觉模型，以魔镜口吻返回描述
// @Tags Mirror
// @Accept json
// @Produce json
// @Param body body AnalyzeRequest true "图片 data URL"
// @Success 200 {object} AnalyzeResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /analyze [post]
func (s *Service) handleAnalyze(c *gin.Context) {
	rid := httptransport.RequestID(c)

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.WarnTag("视觉", "请求体解析失败 rid=%s: %v", rid, err)
		httptransport.RespondError(c, http.StatusInternalServerError, msgFailed)
		return
	}
	if req.Image == "" {
		httptransport.RespondError(c, http.StatusBadRequest, msgNoImage)
		return
	}
	if !s.Available() {
		s.logger.ErrorTag("视觉", "分析服务不可用 rid=%s: %v", rid, s.unavailable)
		httptransport.RespondError(c, http.StatusInternalServerError, msgFailed)
		return
	}

	insp, err := s.inspector.Inspect(c.Request.Context(), req.Image)
	if err != nil {
		s.fail(c, rid, 0, err)
		return
	}
	s.logger.DebugTag("视觉", "收到分析请求 rid=%s media=%s size=%d", rid, insp.MediaType, insp.EncodedSize)

	start := time.Now()
	analysis, err := s.analyzer.Analyze(c.Request.Context(), req.Image)
	if err != nil {
		s.fail(c, rid, insp.EncodedSize, err)
		return
	}

	s.bus.PublishAsync(eventbus.EventVisionCompleted, eventbus.VisionEventData{
		RequestID:     rid,
		Model:         s.analyzer.Model(),
		MediaType:     insp.MediaType,
		ImageBytes:    insp.EncodedSize,
		AnalysisChars: len(analysis),
		Duration:      time.Since(start),
	})
	httptransport.RespondJSON(c, http.StatusOK, AnalyzeResponse{Analysis: analysis})
}

// fail 按错误类型选择状态码：input 为 400，其余统一 500
func (s *Service) fail(c *gin.Context, rid string, imageBytes int, err error) {
	kind := errors.KindOf(err)
	s.bus.PublishAsync(eventbus.EventVisionFailed, eventbus.VisionEventData{
		RequestID:  rid,
		Model:      s.analyzer.Model(),
		ImageBytes: imageBytes,
		Error:      string(kind),
	})
	if kind == errors.KindInput {
		s.logger.WarnTag("视觉", "图片不合法 rid=%s: %v", rid, err)
		httptransport.RespondError(c, http.StatusBadRequest, msgNoImage)
		return
	}
	s.logger.ErrorTag("视觉", "分析失败 rid=%s kind=%s: %v", rid, kind, err)
	httptransport.RespondError(c, http.StatusInternalServerError, msgFailed)
}

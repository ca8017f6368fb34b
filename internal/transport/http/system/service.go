package system

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/swaggo/swag"

	"magic-mirror-server/internal/platform/errors"
	"magic-mirror-server/internal/platform/logging"
	"magic-mirror-server/internal/platform/observability"
	httptransport "magic-mirror-server/internal/transport/http"
	// 注册 OpenAPI 文档
	_ "magic-mirror-server/internal/transport/http/docs"
)

const scalarHTML = `<!DOCTYPE html>
<html lang="en">
	<head>
		<meta charset="utf-8" />
		<title>Magic Mirror API Reference</title>
		<meta name="viewport" content="width=device-width, initial-scale=1" />
	</head>
	<body>
		<script
			id="api-reference"
			data-url="/openapi.json"
			data-layout="modern"
			src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"
		></script>
	</body>
</html>`

// StatsSource 提供事件统计
type StatsSource interface {
	Snapshot() map[string]any
}

// CacheStats 提供音频缓存统计
type CacheStats interface {
	Stats(ctx context.Context) (map[string]any, error)
}

// Options configures the system service.
type Options struct {
	Version string
	// Modules 返回各业务模块是否可用
	Modules func() map[string]bool
	Events  StatsSource
	Cache   CacheStats
	Logger  *logging.Logger
}

// ProcessInfo 进程资源占用
type ProcessInfo struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status        string             `json:"status" example:"ok"`
	Version       string             `json:"version"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	Modules       map[string]bool    `json:"modules"`
	Process       ProcessInfo        `json:"process"`
	Events        map[string]any     `json:"events,omitempty"`
	Cache         map[string]any     `json:"cache,omitempty"`
	Requests      map[string]float64 `json:"requests,omitempty"`
}

// Service 健康检查与接口文档
type Service struct {
	opts    Options
	logger  *logging.Logger
	started time.Time
	proc    *process.Process
	now     func() time.Time
}

func NewService(opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.DefaultLogger
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(errors.KindPlatform, "system.new", "failed to inspect current process", err)
	}
	return &Service{
		opts:    opts,
		logger:  logger,
		started: time.Now(),
		proc:    proc,
		now:     time.Now,
	}, nil
}

// Register 注册健康检查与文档路由，router 为根路由组
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET("/api/health", s.handleHealth)
	router.GET("/openapi.json", s.handleOpenAPI)
	router.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(scalarHTML))
	})
	s.logger.InfoTag("HTTP", "系统路由注册完成")
	return nil
}

// handleHealth 健康检查
// @Summary 健康检查
// @Description 返回运行时长、模块可用性、进程资源与请求统计
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Service) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	resp := HealthResponse{
		Status:        "ok",
		Version:       s.opts.Version,
		UptimeSeconds: int64(s.now().Sub(s.started).Seconds()),
		Modules:       map[string]bool{},
		Process:       s.processInfo(ctx),
		Requests:      observability.Snapshot("http."),
	}

	if s.opts.Modules != nil {
		for name, ok := range s.opts.Modules() {
			resp.Modules[name] = ok
			if !ok {
				resp.Status = "degraded"
			}
		}
	}
	if s.opts.Events != nil {
		resp.Events = s.opts.Events.Snapshot()
	}
	if s.opts.Cache != nil {
		stats, err := s.opts.Cache.Stats(ctx)
		if err != nil {
			s.logger.WarnTag("缓存", "读取缓存统计失败: %v", err)
			stats = map[string]any{"error": err.Error()}
		}
		resp.Cache = stats
	}

	httptransport.RespondJSON(c, http.StatusOK, resp)
}

func (s *Service) processInfo(ctx context.Context) ProcessInfo {
	info := ProcessInfo{PID: s.proc.Pid, Goroutines: runtime.NumGoroutine()}
	if mem, err := s.proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		info.RSSBytes = mem.RSS
	} else if err != nil {
		s.logger.DebugTag("系统", "读取内存信息失败: %v", err)
	}
	if cpu, err := s.proc.CPUPercentWithContext(ctx); err == nil {
		info.CPUPercent = cpu
	}
	return info
}

func (s *Service) handleOpenAPI(c *gin.Context) {
	doc, err := swag.ReadDoc()
	if err != nil {
		s.logger.ErrorTag("HTTP", "生成 OpenAPI 文档失败: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to generate openapi spec")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	domainauth "magic-mirror-server/internal/domain/auth"
	"magic-mirror-server/internal/domain/eventbus"
	domainimage "magic-mirror-server/internal/domain/image"
	"magic-mirror-server/internal/domain/speech"
	"magic-mirror-server/internal/domain/speech/cache"
	"magic-mirror-server/internal/domain/vision"
	platformconfig "magic-mirror-server/internal/platform/config"
	platformerrors "magic-mirror-server/internal/platform/errors"
	platformlogging "magic-mirror-server/internal/platform/logging"
	platformobservability "magic-mirror-server/internal/platform/observability"
	platformstorage "magic-mirror-server/internal/platform/storage"
	httptransport "magic-mirror-server/internal/transport/http"
	httpanalyze "magic-mirror-server/internal/transport/http/analyze"
	httpspeak "magic-mirror-server/internal/transport/http/speak"
	httpsystem "magic-mirror-server/internal/transport/http/system"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

// ConfigEnv 指定配置文件路径的环境变量
const ConfigEnv = "MIRROR_CONFIG"

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	// loader 为空时使用默认查找路径
	loader                *platformconfig.Loader
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	slogger               *slog.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	bus                   *eventbus.AsyncEventBus
	stats                 *eventbus.StatsHandler
	authToken             *domainauth.AuthToken
	audioCache            cache.Store
	synthesizer           speech.Synthesizer
	synthesizerErr        error
	analyzer              *vision.Analyzer
	analyzerErr           error
	inspector             *domainimage.Inspector
}

// Run 启动整个服务生命周期，负责加载配置、初始化依赖和优雅关停。
func Run(ctx context.Context) error {
	state := &appState{}
	defer state.close()

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	logger := state.logger
	if state.config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 收到信号或任一服务退出都会结束 groupCtx
	group, groupCtx := errgroup.WithContext(signalCtx)

	if err := startServices(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(groupCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("引导", "服务已停止")
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("引导", "初始化依赖关系概览")
	for _, step := range steps {
		deps := "-"
		if len(step.DependsOn) > 0 {
			deps = strings.Join(step.DependsOn, ", ")
		}
		logger.InfoTag("引导", "%s (%s) <- %s", step.ID, step.Title, deps)
	}
	logger.InfoTag("引导", "启动服务")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "events:init-bus",
			Title:     "Initialise event bus",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "auth:init-token",
			Title:     "Initialise auth token",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initAuthStep,
		},
		{
			ID:        "speech:init-synthesizer",
			Title:     "Initialise speech synthesizer",
			DependsOn: []string{"observability:setup-hooks", "storage:init-database"},
			Kind:      platformerrors.KindSpeech,
			Execute:   initSpeechStep,
		},
		{
			ID:        "vision:init-analyzer",
			Title:     "Initialise vision analyzer",
			DependsOn: []string{"observability:setup-hooks"},
			Kind:      platformerrors.KindVision,
			Execute:   initVisionStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := state.loader
	if loader == nil {
		loader = platformconfig.NewLoader()
		if path := strings.TrimSpace(os.Getenv(ConfigEnv)); path != "" {
			loader = loader.WithPaths(path)
		}
	}

	result, err := loader.Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load config", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logger = logger
	state.slogger = logger.Slog()
	platformlogging.DefaultLogger = logger

	logger.InfoTag(
		"引导",
		"日志模块就绪 [%s] %s",
		state.config.Log.Level,
		state.configPath,
	)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state == nil || state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled: state.config.Observability.Enabled || strings.EqualFold(state.config.Log.Level, "debug"),
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.slogger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	dsn := state.config.Storage.SQLiteDSN
	if dsn == "" {
		state.logger.DebugTag("引导", "未配置 storage.sqlite_dsn，跳过数据库初始化")
		return nil
	}

	db, err := platformstorage.Open(dsn)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-database", "failed to initialize database", err)
	}
	state.db = db
	state.logger.InfoTag("引导", "数据库已就绪")
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.NewAsyncEventBus(state.config.Events.Workers, state.config.Events.Queue, state.logger)
	stats := eventbus.NewStatsHandler(state.logger)
	if err := stats.Attach(bus); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "events:init-bus", "failed to attach stats handler", err)
	}
	bus.Start()

	state.bus = bus
	state.stats = stats
	return nil
}

func initAuthStep(_ context.Context, state *appState) error {
	authCfg := state.config.Server.Auth
	if !authCfg.Enabled {
		return nil
	}

	token, err := domainauth.NewAuthToken(authCfg.Secret)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "auth:init-token", "failed to create auth token", err)
	}
	state.authToken = token.WithTTL(authCfg.TTL)
	state.logger.InfoTag("认证", "接口认证已开启，令牌有效期 %s", state.authToken.TTL())
	return nil
}

func initSpeechStep(_ context.Context, state *appState) error {
	synth, err := speech.NewRegistry().Create(state.config.Speech, state.logger)
	if err != nil {
		if err := credentialFailure(state, "speech:init-synthesizer", err); err != nil {
			return err
		}
		state.synthesizerErr = err
		return nil
	}

	store, err := initAudioCache(state)
	if err != nil {
		return err
	}
	if store != nil {
		state.audioCache = store
		synth = speech.NewCachedSynthesizer(synth, store, state.config.AudioCache.Labels, state.logger)
	}

	state.synthesizer = synth
	state.logger.InfoTag("引导", "语音合成就绪 provider=%s voice=%s", synth.Name(), synth.Voice())
	return nil
}

func initAudioCache(state *appState) (cache.Store, error) {
	cacheCfg := state.config.AudioCache
	if !cacheCfg.Enabled {
		return nil, nil
	}

	cfg := cache.Config{
		Driver:     strings.ToLower(strings.TrimSpace(cacheCfg.Driver)),
		TTL:        cacheCfg.TTL,
		GCInterval: cacheCfg.GCInterval,
		MaxEntries: cacheCfg.MaxEntries,
	}
	if cfg.Driver == cache.DriverRedis {
		cfg.Redis = &cache.RedisConfig{
			Addr:     cacheCfg.Redis.Addr,
			Username: cacheCfg.Redis.Username,
			Password: cacheCfg.Redis.Password,
			DB:       cacheCfg.Redis.DB,
			Prefix:   cacheCfg.Redis.Prefix,
		}
	}

	store, err := cache.New(cfg, cache.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "speech:init-cache", "failed to create audio cache", err)
	}
	state.logger.InfoTag("缓存", "音频缓存已开启 driver=%s ttl=%s", cfg.Driver, cfg.TTL)
	return store, nil
}

func initVisionStep(_ context.Context, state *appState) error {
	state.inspector = domainimage.NewInspector(state.config.Vision.Security, state.logger)

	analyzer, err := vision.NewAnalyzer(vision.OptionsFromConfig(state.config), state.logger)
	if err != nil {
		if err := credentialFailure(state, "vision:init-analyzer", err); err != nil {
			return err
		}
		state.analyzerErr = err
		return nil
	}
	state.analyzer = analyzer
	state.logger.InfoTag("引导", "视觉分析就绪 model=%s", analyzer.Model())
	return nil
}

// credentialFailure 缺少凭据时默认降级，strict_credentials 开启或非配置错误时返回错误
func credentialFailure(state *appState, op string, err error) error {
	if !platformerrors.IsKind(err, platformerrors.KindConfig) || state.config.Server.StrictCredentials {
		return err
	}
	state.logger.WarnTag("引导", "%s 不可用，相关接口将返回 500: %v", op, err)
	return nil
}

// close 按初始化的逆序释放资源
func (s *appState) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.bus != nil {
		s.bus.Stop()
	}
	if s.audioCache != nil {
		if err := s.audioCache.Close(ctx); err != nil && s.logger != nil {
			s.logger.WarnTag("缓存", "音频缓存未正常关闭: %v", err)
		}
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil && s.logger != nil {
			s.logger.WarnTag("引导", "数据库未正常关闭: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		if err := s.observabilityShutdown(ctx); err != nil && s.logger != nil {
			s.logger.WarnTag("引导", "可观测性未正常关闭: %v", err)
		}
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// buildHTTPHandler 组装路由并注册所有服务
func buildHTTPHandler(ctx context.Context, state *appState) (*gin.Engine, error) {
	logger := state.logger

	var authMiddleware gin.HandlerFunc
	if state.authToken != nil {
		authMiddleware = httptransport.AuthMiddleware(state.authToken, logger)
	}

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config:         state.config,
		Logger:         logger,
		AuthMiddleware: authMiddleware,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build router", err)
	}

	var bus eventbus.Bus = eventbus.Nop{}
	if state.bus != nil {
		bus = state.bus
	}

	var analyzeService *httpanalyze.Service
	if state.analyzer != nil {
		analyzeService, err = httpanalyze.NewService(state.analyzer, state.inspector, bus, logger)
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindVision, "analyze:new-service", "failed to create analyze service", err)
		}
	} else {
		analyzeService = httpanalyze.NewUnavailableService(state.analyzerErr, logger)
	}

	var speakService *httpspeak.Service
	if state.synthesizer != nil {
		speakService, err = httpspeak.NewService(state.synthesizer, bus, logger)
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindSpeech, "speak:new-service", "failed to create speak service", err)
		}
	} else {
		speakService = httpspeak.NewUnavailableService(state.synthesizerErr, logger)
	}

	systemOpts := httpsystem.Options{
		Version: Version,
		Modules: func() map[string]bool {
			return map[string]bool{
				"analyze": analyzeService.Available(),
				"speak":   speakService.Available(),
			}
		},
		Logger: logger,
	}
	if state.stats != nil {
		systemOpts.Events = state.stats
	}
	if state.audioCache != nil {
		systemOpts.Cache = state.audioCache
	}
	systemService, err := httpsystem.NewService(systemOpts)
	if err != nil {
		return nil, err
	}

	if err := analyzeService.Register(ctx, httpRouter.Secured); err != nil {
		return nil, err
	}
	if err := speakService.Register(ctx, httpRouter.Secured); err != nil {
		return nil, err
	}
	if err := systemService.Register(ctx, &httpRouter.Engine.RouterGroup); err != nil {
		return nil, err
	}

	return httpRouter.Engine, nil
}

func startHTTPServer(
	state *appState,
	g *errgroup.Group,
	groupCtx context.Context,
) (*http.Server, error) {
	config := state.config
	logger := state.logger

	router, err := buildHTTPHandler(groupCtx, state)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownTimeout := config.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "Gin 服务已启动，访问地址 http://localhost:%d", config.Server.Port)
		logger.InfoTag("HTTP", "在线文档入口: http://localhost:%d/docs", config.Server.Port)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "HTTP 服务关闭失败: %v", err)
			} else {
				logger.InfoTag("HTTP", "HTTP 服务已优雅关闭")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP 服务启动失败: %v", err)
			return platformerrors.Wrap(platformerrors.KindTransport, "http:listen", "http server failed", err)
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("引导", "收到退出信号 %v，正在进行资源清理", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("引导", "服务关闭过程中出现错误: %v", err)
			return err
		}
		logger.InfoTag("引导", "所有服务已成功关闭")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("引导", "服务关闭超时，已强制退出")
		return errors.New("服务关闭超时")
	}
	return nil
}

func startServices(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	if _, err := startHTTPServer(state, g, groupCtx); err != nil {
		return fmt.Errorf("启动 Http 服务失败: %w", err)
	}
	return nil
}

package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Config captures observability toggles.
type Config struct {
	// Enabled 为 false 时仍累计计数器，但不输出 span/metric 日志
	Enabled bool
}

// ShutdownFunc allows callers to tear down any observability exporters.
type ShutdownFunc func(context.Context) error

var (
	stateMu  sync.RWMutex
	obsLog   *slog.Logger
	obsState Config
	counters = newCounterSet()
)

func current() (*slog.Logger, Config) {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return obsLog, obsState
}

// Setup installs the logger used for span and metric output.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	stateMu.Lock()
	obsLog = logger
	obsState = cfg
	stateMu.Unlock()

	if logger != nil {
		if cfg.Enabled {
			logger.InfoContext(ctx, "[OBSERVABILITY] span/metric 日志已开启")
		} else {
			logger.InfoContext(ctx, "[OBSERVABILITY] 仅统计计数器")
		}
	}
	return func(context.Context) error {
		stateMu.Lock()
		obsLog = nil
		stateMu.Unlock()
		return nil
	}, nil
}

// Enabled reports whether span and metric logging is on.
func Enabled() bool {
	_, cfg := current()
	return cfg.Enabled
}

package observability

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// StartSpan records a lightweight span lifecycle around an operation.
// The returned func must be called exactly once with the operation result.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	start := time.Now()
	logger, cfg := current()
	if logger != nil && cfg.Enabled {
		logger.LogAttrs(ctx, slog.LevelDebug, "obs span start",
			slog.String("component", component),
			slog.String("operation", operation),
		)
	}

	return ctx, func(err error) {
		duration := time.Since(start)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		counters.add(component+"."+outcome, 1)

		logger, cfg := current()
		if logger == nil || !cfg.Enabled {
			return
		}
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", duration),
		}
		if err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, "obs span end", attrs...)
	}
}

// RecordMetric accumulates a datapoint and, when enabled, echoes it to the log.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	counters.add(name, value)

	logger, cfg := current()
	if logger == nil || !cfg.Enabled {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, labels[k]))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "obs metric", attrs...)
}

// Snapshot returns the accumulated totals whose names start with prefix.
func Snapshot(prefix string) map[string]float64 {
	return counters.snapshot(prefix)
}

// Reset clears all accumulated totals.
func Reset() {
	counters.reset()
}

type counterSet struct {
	mu     sync.Mutex
	values map[string]float64
}

func newCounterSet() *counterSet {
	return &counterSet{values: make(map[string]float64)}
}

func (c *counterSet) add(name string, v float64) {
	c.mu.Lock()
	c.values[name] += v
	c.mu.Unlock()
}

func (c *counterSet) snapshot(prefix string) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64)
	for k, v := range c.values {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

func (c *counterSet) reset() {
	c.mu.Lock()
	c.values = make(map[string]float64)
	c.mu.Unlock()
}

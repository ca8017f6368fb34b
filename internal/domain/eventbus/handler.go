package eventbus

import (
	"fmt"
	"sync/atomic"
	"time"

	"magic-mirror-server/internal/platform/logging"
)

// StatsHandler 统计请求结果，供健康检查接口展示
type StatsHandler struct {
	logger *logging.Logger

	visionOK     atomic.Int64
	visionFailed atomic.Int64
	speechOK     atomic.Int64
	speechFailed atomic.Int64
	speechCached atomic.Int64
	audioBytes   atomic.Int64
	visionNanos  atomic.Int64
	speechNanos  atomic.Int64
}

func NewStatsHandler(logger *logging.Logger) *StatsHandler {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &StatsHandler{logger: logger}
}

// Attach 订阅所有主题
func (h *StatsHandler) Attach(bus Bus) error {
	subs := map[string]interface{}{
		EventVisionCompleted: h.onVisionCompleted,
		EventVisionFailed:    h.onVisionFailed,
		EventSpeechCompleted: h.onSpeechCompleted,
		EventSpeechFailed:    h.onSpeechFailed,
	}
	for topic, fn := range subs {
		if err := bus.Subscribe(topic, fn); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func (h *StatsHandler) onVisionCompleted(data VisionEventData) {
	h.visionOK.Add(1)
	h.visionNanos.Add(int64(data.Duration))
	h.logger.DebugTag("事件", "视觉分析完成 rid=%s model=%s chars=%d 耗时=%s",
		data.RequestID, data.Model, data.AnalysisChars, data.Duration)
}

func (h *StatsHandler) onVisionFailed(data VisionEventData) {
	h.visionFailed.Add(1)
	h.logger.DebugTag("事件", "视觉分析失败 rid=%s err=%s", data.RequestID, data.Error)
}

func (h *StatsHandler) onSpeechCompleted(data SpeechEventData) {
	h.speechOK.Add(1)
	h.speechNanos.Add(int64(data.Duration))
	h.audioBytes.Add(int64(data.AudioBytes))
	if data.Cached {
		h.speechCached.Add(1)
	}
	h.logger.DebugTag("事件", "语音合成完成 rid=%s provider=%s bytes=%d cached=%v",
		data.RequestID, data.Provider, data.AudioBytes, data.Cached)
}

func (h *StatsHandler) onSpeechFailed(data SpeechEventData) {
	h.speechFailed.Add(1)
	h.logger.DebugTag("事件", "语音合成失败 rid=%s err=%s", data.RequestID, data.Error)
}

// Snapshot 返回当前计数
func (h *StatsHandler) Snapshot() map[string]any {
	return map[string]any{
		"vision_completed":  h.visionOK.Load(),
		"vision_failed":     h.visionFailed.Load(),
		"vision_avg_ms":     avgMillis(h.visionNanos.Load(), h.visionOK.Load()),
		"speech_completed":  h.speechOK.Load(),
		"speech_failed":     h.speechFailed.Load(),
		"speech_cache_hits": h.speechCached.Load(),
		"speech_avg_ms":     avgMillis(h.speechNanos.Load(), h.speechOK.Load()),
		"audio_bytes":       h.audioBytes.Load(),
	}
}

func avgMillis(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return (time.Duration(total) / time.Duration(count)).Milliseconds()
}

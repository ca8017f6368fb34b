package speech

import (
	"context"
	"strconv"
	"time"

	"magic-mirror-server/internal/domain/speech/cache"
	"magic-mirror-server/internal/platform/logging"
	"magic-mirror-server/internal/platform/observability"
)

// CachedSynthesizer 在合成器外包一层音频缓存。缓存读写失败只记日志，不影响请求。
type CachedSynthesizer struct {
	next   Synthesizer
	store  cache.Store
	labels map[string]string
	logger *logging.Logger
}

func NewCachedSynthesizer(next Synthesizer, store cache.Store, labels map[string]string, logger *logging.Logger) *CachedSynthesizer {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &CachedSynthesizer{next: next, store: store, labels: labels, logger: logger}
}

func (c *CachedSynthesizer) Name() string  { return c.next.Name() }
func (c *CachedSynthesizer) Voice() string { return c.next.Voice() }
func (c *CachedSynthesizer) Model() string { return c.next.Model() }

func (c *CachedSynthesizer) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if text == "" {
		return c.next.Synthesize(ctx, text)
	}
	key := cache.Key(c.next.Name(), c.next.Voice(), c.next.Model(), text)

	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WarnTag("缓存", "读取音频缓存失败 key=%s: %v", key[:12], err)
	}
	if ok {
		observability.RecordMetric(ctx, "speech.cache.hit", 1, map[string]string{"provider": c.next.Name()})
		c.logger.DebugTag("缓存", "命中 key=%s bytes=%d", key[:12], len(entry.Audio))
		audio := &Audio{
			Data:        entry.Audio,
			ContentType: entry.ContentType,
			Provider:    c.next.Name(),
			Voice:       c.next.Voice(),
			Model:       c.next.Model(),
			Cached:      true,
		}
		if ms, err := strconv.ParseInt(entry.Meta["duration_ms"], 10, 64); err == nil {
			audio.Duration = time.Duration(ms) * time.Millisecond
		}
		if audio.ContentType == "" {
			audio.ContentType = ContentTypeMPEG
		}
		return audio, nil
	}
	observability.RecordMetric(ctx, "speech.cache.miss", 1, map[string]string{"provider": c.next.Name()})

	audio, err := c.next.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string, len(c.labels)+3)
	for k, v := range c.labels {
		meta[k] = v
	}
	meta["provider"] = audio.Provider
	meta["voice"] = audio.Voice
	if audio.Duration > 0 {
		meta["duration_ms"] = strconv.FormatInt(audio.Duration.Milliseconds(), 10)
	}
	if err := c.store.Put(ctx, key, cache.Entry{
		Audio:       audio.Data,
		ContentType: audio.ContentType,
		Meta:        meta,
	}); err != nil {
		c.logger.WarnTag("缓存", "写入音频缓存失败 key=%s: %v", key[:12], err)
	}
	return audio, nil
}

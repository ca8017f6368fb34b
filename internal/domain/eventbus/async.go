package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	evbus "github.com/asaskevich/EventBus"

	"magic-mirror-server/internal/platform/logging"
)

// AsyncEventBus 异步事件总线，订阅者在 worker 协程中执行
type AsyncEventBus struct {
	bus       evbus.Bus
	workerNum int
	workChan  chan asyncEvent
	logger    *logging.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup

	pending atomic.Int64
	dropped atomic.Int64
}

type asyncEvent struct {
	topic string
	args  []interface{}
}

// NewAsyncEventBus 创建异步事件总线，queue 为缓冲区大小
func NewAsyncEventBus(workerNum, queue int, logger *logging.Logger) *AsyncEventBus {
	if workerNum <= 0 {
		workerNum = 4
	}
	if queue <= 0 {
		queue = 256
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &AsyncEventBus{
		bus:       evbus.New(),
		workerNum: workerNum,
		workChan:  make(chan asyncEvent, queue),
		logger:    logger,
	}
}

// Start 启动异步处理
func (aeb *AsyncEventBus) Start() {
	for i := 0; i < aeb.workerNum; i++ {
		aeb.wg.Add(1)
		go aeb.worker()
	}
}

// Stop 停止接收新事件，并等待已入队的事件处理完
func (aeb *AsyncEventBus) Stop() {
	aeb.mu.Lock()
	if aeb.stopped {
		aeb.mu.Unlock()
		return
	}
	aeb.stopped = true
	close(aeb.workChan)
	aeb.mu.Unlock()
	aeb.wg.Wait()
}

func (aeb *AsyncEventBus) worker() {
	defer aeb.wg.Done()
	for event := range aeb.workChan {
		aeb.dispatch(event)
	}
}

func (aeb *AsyncEventBus) dispatch(event asyncEvent) {
	defer aeb.pending.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			aeb.logger.ErrorTag("事件", "订阅者 panic topic=%s: %v", event.topic, r)
		}
	}()
	aeb.bus.Publish(event.topic, event.args...)
}

// PublishAsync 异步发布事件，队列满或总线已停止时丢弃
func (aeb *AsyncEventBus) PublishAsync(topic string, args ...interface{}) {
	aeb.mu.RLock()
	defer aeb.mu.RUnlock()
	if aeb.stopped {
		aeb.dropped.Add(1)
		return
	}
	aeb.pending.Add(1)
	select {
	case aeb.workChan <- asyncEvent{topic: topic, args: args}:
	default:
		aeb.pending.Add(-1)
		aeb.dropped.Add(1)
		aeb.logger.WarnTag("事件", "事件队列已满，丢弃 topic=%s", topic)
	}
}

// Subscribe 订阅事件
func (aeb *AsyncEventBus) Subscribe(topic string, fn interface{}) error {
	return aeb.bus.Subscribe(topic, fn)
}

// Unsubscribe 取消订阅
func (aeb *AsyncEventBus) Unsubscribe(topic string, handler interface{}) error {
	return aeb.bus.Unsubscribe(topic, handler)
}

// HasCallback 检查是否有订阅者
func (aeb *AsyncEventBus) HasCallback(topic string) bool {
	return aeb.bus.HasCallback(topic)
}

// Dropped 返回被丢弃的事件数
func (aeb *AsyncEventBus) Dropped() int64 {
	return aeb.dropped.Load()
}

// Flush 等待已入队事件处理完成
func (aeb *AsyncEventBus) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for aeb.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

package eventbus

import (
	"fmt"
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"

	"screamshot-server/internal/platform/logging"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 1000
)

// AsyncEventBus delivers events on a fixed pool of workers. Events published
// while the queue is full are dropped and counted.
type AsyncEventBus struct {
	bus       evbus.Bus
	workerNum int
	workChan  chan asyncEvent
	stopChan  chan struct{}
	logger    *logging.Logger

	wg       sync.WaitGroup
	pending  sync.WaitGroup
	dropped  atomic.Int64
	stopOnce sync.Once
	started  atomic.Bool
}

type asyncEvent struct {
	topic string
	args  []any
}

// NewAsyncEventBus creates a bus with workerNum workers. Call Start before publishing.
func NewAsyncEventBus(workerNum int, logger *logging.Logger) *AsyncEventBus {
	if workerNum <= 0 {
		workerNum = defaultWorkers
	}
	return &AsyncEventBus{
		bus:       evbus.New(),
		workerNum: workerNum,
		workChan:  make(chan asyncEvent, defaultQueueSize),
		stopChan:  make(chan struct{}),
		logger:    logger,
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (aeb *AsyncEventBus) Start() {
	if !aeb.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < aeb.workerNum; i++ {
		aeb.wg.Add(1)
		go aeb.worker()
	}
}

// Stop drains queued events and stops the workers.
func (aeb *AsyncEventBus) Stop() {
	aeb.stopOnce.Do(func() {
		if aeb.started.Load() {
			aeb.pending.Wait()
		}
		close(aeb.stopChan)
		aeb.wg.Wait()
	})
}

func (aeb *AsyncEventBus) worker() {
	defer aeb.wg.Done()
	for {
		select {
		case <-aeb.stopChan:
			return
		case event := <-aeb.workChan:
			aeb.deliver(event)
		}
	}
}

func (aeb *AsyncEventBus) deliver(event asyncEvent) {
	defer aeb.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			aeb.logger.ErrorTag(logging.TagCapture, "event handler for %s panicked: %v", event.topic, fmt.Sprint(r))
		}
	}()
	aeb.bus.Publish(event.topic, event.args...)
}

// Publish delivers synchronously on the caller's goroutine.
func (aeb *AsyncEventBus) Publish(topic string, args ...any) {
	aeb.bus.Publish(topic, args...)
}

// PublishAsync queues the event for a worker.
func (aeb *AsyncEventBus) PublishAsync(topic string, args ...any) {
	aeb.pending.Add(1)
	select {
	case aeb.workChan <- asyncEvent{topic: topic, args: args}:
	default:
		aeb.pending.Done()
		n := aeb.dropped.Add(1)
		aeb.logger.WarnTag(logging.TagCapture, "event queue full, dropped %s (total dropped %d)", topic, n)
	}
}

// Subscribe registers fn for topic.
func (aeb *AsyncEventBus) Subscribe(topic string, fn any) error {
	return aeb.bus.Subscribe(topic, fn)
}

// HasCallback reports whether topic has subscribers.
func (aeb *AsyncEventBus) HasCallback(topic string) bool {
	return aeb.bus.HasCallback(topic)
}

// WaitAsync blocks until every queued event has been delivered.
func (aeb *AsyncEventBus) WaitAsync() {
	aeb.pending.Wait()
}

// Dropped returns how many events were discarded because the queue was full.
func (aeb *AsyncEventBus) Dropped() int64 {
	return aeb.dropped.Load()
}

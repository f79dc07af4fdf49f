package eventbus

import (
	"screamshot-server/internal/domain/screenshot"
)

// Capture topics. Handlers receive a single screenshot.Outcome argument.
const (
	EventCaptureCompleted = "capture:completed"
	EventCaptureRejected  = "capture:rejected"
	EventCaptureFailed    = "capture:failed"
)

// CaptureTopics lists every capture topic.
var CaptureTopics = []string{EventCaptureCompleted, EventCaptureRejected, EventCaptureFailed}

// TopicFor maps an outcome status to its topic.
func TopicFor(status screenshot.Status) string {
	switch status {
	case screenshot.StatusOK:
		return EventCaptureCompleted
	case screenshot.StatusRejected:
		return EventCaptureRejected
	default:
		return EventCaptureFailed
	}
}

// CapturePublisher forwards capture outcomes onto the bus.
type CapturePublisher struct {
	bus *AsyncEventBus
}

// NewCapturePublisher returns an observer that publishes asynchronously on bus.
func NewCapturePublisher(bus *AsyncEventBus) *CapturePublisher {
	return &CapturePublisher{bus: bus}
}

// ObserveCapture implements screenshot.Observer.
func (p *CapturePublisher) ObserveCapture(o screenshot.Outcome) {
	p.bus.PublishAsync(TopicFor(o.Status), o)
}

// SubscribeCaptures registers fn on every capture topic.
func SubscribeCaptures(bus *AsyncEventBus, fn func(screenshot.Outcome)) error {
	for _, topic := range CaptureTopics {
		if err := bus.Subscribe(topic, fn); err != nil {
			return err
		}
	}
	return nil
}

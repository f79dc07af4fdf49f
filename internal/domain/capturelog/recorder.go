package capturelog

import (
	"context"
	"time"

	"screamshot-server/internal/domain/eventbus"
	"screamshot-server/internal/domain/screenshot"
	"screamshot-server/internal/platform/logging"
)

const recordTimeout = 5 * time.Second

// Recorder writes every capture outcome published on the bus into a Store.
type Recorder struct {
	store  Store
	logger *logging.Logger
}

// NewRecorder returns a recorder backed by store.
func NewRecorder(store Store, logger *logging.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Attach subscribes the recorder to all capture topics of bus.
func (r *Recorder) Attach(bus *eventbus.AsyncEventBus) error {
	return eventbus.SubscribeCaptures(bus, r.Handle)
}

// Handle records a single outcome. Failures are logged and dropped.
func (r *Recorder) Handle(o screenshot.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	entry := EntryFromOutcome(o)
	if err := r.store.Record(ctx, entry); err != nil {
		r.logger.WarnTag(logging.TagCapture, "record capture %s failed: %v", entry.ID, err)
		return
	}
	r.logger.DebugTag(logging.TagCapture, "recorded capture %s status=%s url=%s", entry.ID, entry.Status, entry.URL)
}

// Store exposes the underlying store for read paths.
func (r *Recorder) Store() Store {
	return r.store
}

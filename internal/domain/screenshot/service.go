package screenshot

import (
	"time"

	"screamshot-server/internal/platform/errors"
	"screamshot-server/internal/platform/logging"
)

// Status summarises how a capture request ended.
type Status string

const (
	StatusOK       Status = "ok"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Outcome describes a finished capture request.
type Outcome struct {
	URL      string
	Params   map[string]any
	Status   Status
	Errors   []string
	Bytes    int64
	Duration time.Duration
	At       time.Time
}

// Observer is told about every serialized request. Implementations must not block.
type Observer interface {
	ObserveCapture(Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Outcome)

func (f ObserverFunc) ObserveCapture(o Outcome) { f(o) }

// Service hands out per-request serializers sharing one generator and encoder.
type Service struct {
	generator Generator
	encoder   Encoder
	observer  Observer
	logger    *logging.Logger
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Generator Generator
	Encoder   Encoder
	Observer  Observer
	Logger    *logging.Logger
}

// NewService validates opts and returns a Service.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Generator == nil {
		return nil, errors.New(errors.KindConfig, "screenshot.new_service", "generator is required")
	}
	if opts.Encoder == nil {
		return nil, errors.New(errors.KindConfig, "screenshot.new_service", "encoder is required")
	}
	return &Service{
		generator: opts.Generator,
		encoder:   opts.Encoder,
		observer:  opts.Observer,
		logger:    opts.Logger,
	}, nil
}

// NewSerializer prepares a serializer for url with its capture parameters.
func (s *Service) NewSerializer(url string, raw RawParameters) *Serializer {
	return s.serializer(url, raw, false)
}

// NewRequestSerializer prepares a serializer whose url is carried in raw.
func (s *Service) NewRequestSerializer(raw RawParameters) *Serializer {
	return s.serializer("", raw, true)
}

func (s *Service) serializer(url string, raw RawParameters, mapping bool) *Serializer {
	return &Serializer{
		url:       url,
		raw:       raw,
		mapping:   mapping,
		generator: s.generator,
		encoder:   s.encoder,
		observer:  s.observer,
		started:   time.Now(),
	}
}

// Logger exposes the service logger to transports.
func (s *Service) Logger() *logging.Logger {
	return s.logger
}

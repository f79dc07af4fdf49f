package screenshot

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"screamshot-server/internal/domain/image"
	"screamshot-server/internal/platform/errors"
	"screamshot-server/internal/platform/observability"
)

// AttachmentName is the filename clients receive with a successful capture.
const AttachmentName = "screenshot.png"

// Retrieved is the outcome of running the generator on a Validated request.
// Image is nil when validation or generation failed.
type Retrieved struct {
	Validated
	Image []byte
}

// Retrieve invokes gen when v is valid. Expected generator failures are
// appended to the error list; any other failure is returned.
func (v Validated) Retrieve(ctx context.Context, gen Generator) (Retrieved, error) {
	r := Retrieved{Validated: v}
	r.Errors = append([]string(nil), v.Errors...)
	if !v.Valid() {
		return r, nil
	}

	data, err := gen.Generate(ctx, v.URL, v.Params.Options())
	if err != nil {
		var gerr *GenerationError
		if stderrors.As(err, &gerr) {
			r.Errors = append(r.Errors, gerr.Message)
			return r, nil
		}
		return r, errors.Wrap(errors.KindCapture, "screenshot.retrieve", "generator failed", err)
	}
	if len(data) > 0 {
		r.Image = data
	}
	return r, nil
}

// Encoder turns image bytes into a PNG file on disk.
type Encoder interface {
	ToTempPNG(ctx context.Context, data []byte) (*image.TempPNG, error)
}

// Response is a transport-neutral rendering of a capture request. Exactly one
// of File and Errors is meaningful, selected by Status.
type Response struct {
	Status   int
	File     *image.TempPNG
	Filename string
	Errors   []string
}

// Close releases the temporary file, if any.
func (r *Response) Close() error {
	if r == nil {
		return nil
	}
	return r.File.Close()
}

// Serializer drives one request through validation, retrieval and rendering.
// Each stage runs at most once; later stages trigger earlier ones as needed.
type Serializer struct {
	url       string
	raw       RawParameters
	mapping   bool
	generator Generator
	encoder   Encoder
	observer  Observer

	validated *Validated
	retrieved *Retrieved
	started   time.Time
}

// IsValid validates the request on first use and reports whether it passed.
func (s *Serializer) IsValid() bool {
	return s.validate().Valid()
}

// Errors returns the accumulated error messages so far.
func (s *Serializer) Errors() []string {
	if s.retrieved != nil {
		return append([]string(nil), s.retrieved.Errors...)
	}
	if s.validated != nil {
		return append([]string(nil), s.validated.Errors...)
	}
	return nil
}

// Params returns the validated parameters, validating first if needed.
func (s *Serializer) Params() Params {
	return s.validate().Params
}

// URL returns the capture target.
func (s *Serializer) URL() string {
	return s.validate().URL
}

func (s *Serializer) validate() Validated {
	if s.validated == nil {
		var v Validated
		if s.mapping {
			v = ValidateRequest(s.raw)
		} else {
			v = Validate(s.url, s.raw)
		}
		s.validated = &v
	}
	return *s.validated
}

// Object returns the screenshot bytes, running the generator at most once.
func (s *Serializer) Object(ctx context.Context) ([]byte, error) {
	if s.retrieved == nil {
		ctx, end := observability.StartSpan(ctx, "screenshot", "retrieve")
		r, err := s.validate().Retrieve(ctx, s.generator)
		end(err)
		if err != nil {
			return nil, err
		}
		s.retrieved = &r
	}
	return s.retrieved.Image, nil
}

// Serialize renders the response. When data is non-empty it is used as the
// image and the generator is not consulted. Unexpected failures are returned
// as errors and should map to a server error.
func (s *Serializer) Serialize(ctx context.Context, data []byte) (resp *Response, err error) {
	defer func() { s.notify(resp, err) }()

	if len(data) == 0 {
		data, err = s.Object(ctx)
		if err != nil {
			return nil, err
		}
	}
	if len(data) == 0 {
		errs := s.Errors()
		if errs == nil {
			errs = []string{}
		}
		return &Response{Status: http.StatusBadRequest, Errors: errs}, nil
	}

	file, err := s.encoder.ToTempPNG(ctx, data)
	if err != nil {
		return nil, err
	}
	return &Response{Status: http.StatusOK, File: file, Filename: AttachmentName}, nil
}

func (s *Serializer) notify(resp *Response, err error) {
	status := StatusFailed
	outcome := Outcome{
		URL:      s.URL(),
		Params:   s.raw.Map(),
		Duration: time.Since(s.started),
		At:       time.Now(),
	}
	switch {
	case err != nil:
		outcome.Errors = []string{err.Error()}
	case resp.Status == http.StatusOK:
		status = StatusOK
		outcome.Bytes = resp.File.Size
	default:
		status = StatusRejected
		outcome.Errors = resp.Errors
	}
	outcome.Status = status

	observability.RecordMetric(context.Background(), "screenshot.requests", 1, map[string]string{"status": string(status)})
	if s.observer != nil {
		s.observer.ObserveCapture(outcome)
	}
}

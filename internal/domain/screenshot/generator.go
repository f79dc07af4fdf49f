package screenshot

import (
	"context"
	"fmt"
)

// Options are the capture parameters handed to a Generator. Zero values mean
// "use the generator default".
type Options struct {
	Width       int
	Height      int
	WaitUntil   []string
	Selector    string
	WaitFor     string
	Credentials *Credentials
}

// Generator renders url and returns the raw image bytes.
//
// Expected failures are reported as *GenerationError so the caller can hand
// the message back to the client. Any other error is treated as unexpected.
type Generator interface {
	Generate(ctx context.Context, url string, opts Options) ([]byte, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, url string, opts Options) ([]byte, error)

func (f GeneratorFunc) Generate(ctx context.Context, url string, opts Options) ([]byte, error) {
	return f(ctx, url, opts)
}

// FailureKind names an expected generation failure.
type FailureKind string

const (
	FailureBadURL      FailureKind = "bad_url"
	FailureBadSelector FailureKind = "bad_selector"
	FailureNetwork     FailureKind = "network"
)

// GenerationError is an expected failure whose Message is safe to show to clients.
type GenerationError struct {
	Kind    FailureKind
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// BadURL reports a target the browser cannot navigate to.
func BadURL(url string, cause error) *GenerationError {
	msg := fmt.Sprintf("Bad url: %q", url)
	if cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, cause)
	}
	return &GenerationError{Kind: FailureBadURL, Message: msg, Cause: cause}
}

// BadSelector reports a selector that matched nothing or could not be parsed.
func BadSelector(selector string, cause error) *GenerationError {
	return &GenerationError{Kind: FailureBadSelector, Message: fmt.Sprintf("Bad selector: %q", selector), Cause: cause}
}

// NetworkFailure reports a navigation that did not complete.
func NetworkFailure(url string, cause error) *GenerationError {
	msg := fmt.Sprintf("Network failure while loading %q", url)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &GenerationError{Kind: FailureNetwork, Message: msg, Cause: cause}
}

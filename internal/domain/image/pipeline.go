package image

import (
	"bufio"
	"bytes"
	"context"
	"image"
	"image/png"
	"os"

	"screamshot-server/internal/platform/errors"
	"screamshot-server/internal/platform/logging"
	"screamshot-server/internal/platform/observability"
)

// Pipeline re-encodes arbitrary image bytes as PNG into a scoped temporary file.
type Pipeline struct {
	tempDir string
	limits  Limits
	logger  *logging.Logger
}

// Options configures the pipeline behaviour.
type Options struct {
	TempDir string
	Limits  Limits
	Logger  *logging.Logger
}

// TempPNG is a PNG written to disk. Callers must Close it to delete the file.
type TempPNG struct {
	Path       string
	Size       int64
	Validation ValidationResult
}

// Close removes the file. It is safe to call more than once.
func (t *TempPNG) Close() error {
	if t == nil || t.Path == "" {
		return nil
	}
	err := os.Remove(t.Path)
	t.Path = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// NewPipeline constructs a PNG pipeline. An empty TempDir uses os.TempDir.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{
		tempDir: opts.TempDir,
		limits:  opts.Limits.withDefaults(),
		logger:  opts.Logger,
	}
}

// ToTempPNG validates data, decodes it and writes a PNG rendition to a temp file.
// On error no file is left behind.
func (p *Pipeline) ToTempPNG(ctx context.Context, data []byte) (_ *TempPNG, err error) {
	_, end := observability.StartSpan(ctx, "image", "to_temp_png")
	defer func() { end(err) }()

	validation, err := Validate(data, p.limits)
	if err != nil {
		p.logger.WarnTag(logging.TagCapture, "rejecting image payload: %v", err)
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.KindEncode, "image.decode", "decode image", err)
	}

	file, err := os.CreateTemp(p.tempDir, "screenshot-*.png")
	if err != nil {
		return nil, errors.Wrap(errors.KindEncode, "image.tempfile", "create temp file", err)
	}
	out := &TempPNG{Path: file.Name(), Validation: validation}
	defer func() {
		if err != nil {
			_ = out.Close()
		}
	}()

	w := bufio.NewWriter(file)
	if err = png.Encode(w, img); err != nil {
		file.Close()
		return nil, errors.Wrap(errors.KindEncode, "image.encode", "encode png", err)
	}
	if err = w.Flush(); err != nil {
		file.Close()
		return nil, errors.Wrap(errors.KindEncode, "image.encode", "flush png", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(errors.KindEncode, "image.tempfile", "stat temp file", err)
	}
	if err = file.Close(); err != nil {
		return nil, errors.Wrap(errors.KindEncode, "image.tempfile", "close temp file", err)
	}
	out.Size = info.Size()

	p.logger.DebugTag(logging.TagCapture, "encoded %s %dx%d to %s (%d bytes)",
		validation.Format, validation.Width, validation.Height, out.Path, out.Size)
	return out, nil
}

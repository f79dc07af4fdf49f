package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"screamshot-server/internal/platform/errors"
)

var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
	"bmp":  {0x42, 0x4D},
}

// Validate checks size, header and dimensions without decoding pixel data.
func Validate(data []byte, limits Limits) (ValidationResult, error) {
	limits = limits.withDefaults()
	result := ValidationResult{FileSize: int64(len(data))}

	if len(data) == 0 {
		return result, errors.New(errors.KindEncode, "image.validate", "empty image payload")
	}
	if result.FileSize > limits.MaxBytes {
		return result, errors.New(errors.KindEncode, "image.validate",
			fmt.Sprintf("image size %d exceeds limit %d", result.FileSize, limits.MaxBytes))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return result, errors.Wrap(errors.KindEncode, "image.validate",
			fmt.Sprintf("unrecognised image (header %x)", data[:min(len(data), 8)]), err)
	}
	result.Format = format
	result.Width = cfg.Width
	result.Height = cfg.Height

	if !matchesSignature(data, format) {
		return result, errors.New(errors.KindEncode, "image.validate",
			fmt.Sprintf("%s payload has a mismatched signature", format))
	}
	if cfg.Width > limits.MaxWidth || cfg.Height > limits.MaxHeight {
		return result, errors.New(errors.KindEncode, "image.validate",
			fmt.Sprintf("dimensions %dx%d exceed limit %dx%d", cfg.Width, cfg.Height, limits.MaxWidth, limits.MaxHeight))
	}
	if int64(cfg.Width)*int64(cfg.Height) > limits.MaxPixels {
		return result, errors.New(errors.KindEncode, "image.validate",
			fmt.Sprintf("pixel count %d exceeds limit %d", int64(cfg.Width)*int64(cfg.Height), limits.MaxPixels))
	}

	return result, nil
}

func matchesSignature(data []byte, format string) bool {
	signature, ok := imageSignatures[strings.ToLower(format)]
	if !ok {
		return true
	}
	return bytes.HasPrefix(data, signature)
}

package image

// Limits bounds what the encoder accepts from a generator.
// Zero values fall back to the package defaults.
type Limits struct {
	MaxBytes  int64
	MaxWidth  int
	MaxHeight int
	MaxPixels int64
}

const (
	defaultMaxBytes  int64 = 32 << 20
	defaultMaxWidth        = 16384
	defaultMaxHeight       = 16384
	defaultMaxPixels int64 = 16384 * 16384
)

func (l Limits) withDefaults() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = defaultMaxBytes
	}
	if l.MaxWidth <= 0 {
		l.MaxWidth = defaultMaxWidth
	}
	if l.MaxHeight <= 0 {
		l.MaxHeight = defaultMaxHeight
	}
	if l.MaxPixels <= 0 {
		l.MaxPixels = defaultMaxPixels
	}
	return l
}

// ValidationResult captures what was learnt about a payload before decoding it fully.
type ValidationResult struct {
	Format   string
	Width    int
	Height   int
	FileSize int64
}

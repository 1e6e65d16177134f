package fields

import (
	"context"
	"errors"
)

var (
	// ErrEmptySource is returned by a Sampler when the source yields no usable rows.
	ErrEmptySource = errors.New("source has no data rows")
	// ErrUnsupportedFile indicates an upload whose kind no sampler understands.
	ErrUnsupportedFile = errors.New("only CSV and Excel files are supported")
)

// Sampler port (turns a file or table into ordered column summaries)
type Sampler interface {
	Sample(ctx context.Context) ([]Sample, error)
}

package export

import (
	"context"
	"fmt"
)

// Progress receives coarse display-only progress in percent. Values are
// advisory; completion is signalled by Export returning.
type Progress func(percent int)

// Exporter turns a manifest into a deliverable.
type Exporter interface {
	Export(ctx context.Context, manifest Manifest, progress Progress) (*Result, error)
}

// ExportError is a failure from a rendering backend.
type ExportError struct {
	StatusCode int
	Body       string
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx)
// are permanent: the manifest itself is wrong.
func (e *ExportError) IsRetryable() bool {
	return e.StatusCode >= 500
}

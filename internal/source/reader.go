// Package source implements the two raw-row producers spec.md §6 names:
// a historical CSV-blob reader and a live object-store reader, both
// yielding the same decoder-ready RawRow shape.
package source

import (
	"context"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

// Reader produces a stream of raw rows over a bounded channel; a full
// channel blocks the reader, which is the backpressure toward it. Rows
// are sent one at a time and are not grouped into batches.
type Reader interface {
	Read(ctx context.Context) (<-chan eke.RawRow, error)
}

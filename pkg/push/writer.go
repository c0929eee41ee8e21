// Package push performs the only network side effects of a run: chunked
// bulk quantity writes against the catalog backend, and the one-shot
// activation-recovery pass for items not yet stocked at the target location.
package push

import (
	"context"
	"time"

	"github.com/shelfsync/shelfsync/pkg/logging"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
)

// Defaults for the write pass. The chunk delay is a cooperative pause to
// respect the backend's rate limits; the failure backoff is the longer pause
// substituted after a full call-level failure.
const (
	DefaultChunkSize      = 100
	DefaultChunkDelay     = 500 * time.Millisecond
	DefaultFailureBackoff = 5 * time.Second
)

// RowFailure is one per-row error as returned inside an otherwise
// successful bulk write call, indexed within that call's chunk.
type RowFailure struct {
	Index   int
	Message string
}

// QuantityWriter is the backend's bulk "set available quantity" call. The
// write is an unconditional overwrite, not a compare-and-swap. A nil error
// with a non-empty failure list means the call landed but some rows were
// rejected; a non-nil error means the whole call failed.
type QuantityWriter interface {
	SetQuantities(ctx context.Context, locationID string, items []reconcile.WorkItem) ([]RowFailure, error)
}

// RowError is a business-level rejection of one quantity update, retained
// with its originating work item for classification by the recovery pass.
type RowError struct {
	Item    reconcile.WorkItem
	Message string
}

// Result accumulates the outcome of one write pass.
type Result struct {
	// Updated counts rows assumed written: the backend reports only
	// negative acknowledgements, so success is inferred by the absence of
	// an error for a row's index.
	Updated int

	// Failed counts rows lost to full call-level failures (whole chunks,
	// no partial credit).
	Failed int

	// Changed lists the work items assumed written, in write order.
	Changed []reconcile.WorkItem

	// RowErrors lists per-row rejections from otherwise successful calls.
	RowErrors []RowError
}

// Errored returns the total rows not written in this pass.
func (r *Result) Errored() int {
	return r.Failed + len(r.RowErrors)
}

// Merge folds another pass's result into this one.
func (r *Result) Merge(other *Result) {
	r.Updated += other.Updated
	r.Failed += other.Failed
	r.Changed = append(r.Changed, other.Changed...)
	r.RowErrors = append(r.RowErrors, other.RowErrors...)
}

// Writer issues chunked bulk quantity writes. Chunks are written strictly in
// sequence; a failed chunk is skipped, never retried within a pass.
type Writer struct {
	backend        QuantityWriter
	locationID     string
	chunkSize      int
	chunkDelay     time.Duration
	failureBackoff time.Duration
}

// NewWriter creates a Writer targeting one stock location.
func NewWriter(backend QuantityWriter, locationID string, opts ...WriterOption) *Writer {
	w := &Writer{
		backend:        backend,
		locationID:     locationID,
		chunkSize:      DefaultChunkSize,
		chunkDelay:     DefaultChunkDelay,
		failureBackoff: DefaultFailureBackoff,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithChunkSize overrides the maximum rows per bulk call.
func WithChunkSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.chunkSize = n
		}
	}
}

// WithChunkDelay overrides the pause after each successful call.
func WithChunkDelay(d time.Duration) WriterOption {
	return func(w *Writer) {
		w.chunkDelay = d
	}
}

// WithFailureBackoff overrides the pause after a full call-level failure.
func WithFailureBackoff(d time.Duration) WriterOption {
	return func(w *Writer) {
		w.failureBackoff = d
	}
}

// Write partitions items into consecutive chunks of at most the configured
// size and issues one bulk call per chunk. Call-level failures cost the
// whole chunk and apply the longer backoff; row-level failures inside a
// successful call are kept with their work items for recovery.
func (w *Writer) Write(ctx context.Context, items []reconcile.WorkItem) *Result {
	log := logging.Ctx(ctx)
	result := &Result{}

	for start := 0; start < len(items); start += w.chunkSize {
		end := start + w.chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		failures, err := w.backend.SetQuantities(ctx, w.locationID, chunk)
		if err != nil {
			result.Failed += len(chunk)
			log.Error().
				Err(err).
				Int("chunk_start", start).
				Int("chunk_size", len(chunk)).
				Msg("Bulk write call failed, skipping chunk")
			w.pause(ctx, w.failureBackoff)
			continue
		}

		errored := make(map[int]string, len(failures))
		for _, f := range failures {
			if f.Index < 0 || f.Index >= len(chunk) {
				log.Warn().
					Int("index", f.Index).
					Str("message", f.Message).
					Msg("Row error references an index outside its chunk, ignoring")
				continue
			}
			errored[f.Index] = f.Message
		}

		for i, item := range chunk {
			if msg, bad := errored[i]; bad {
				result.RowErrors = append(result.RowErrors, RowError{Item: item, Message: msg})
				continue
			}
			result.Updated++
			result.Changed = append(result.Changed, item)
		}

		if len(errored) > 0 {
			log.Warn().
				Int("chunk_start", start).
				Int("row_errors", len(errored)).
				Msg("Bulk write call returned row errors")
		}

		w.pause(ctx, w.chunkDelay)
	}

	return result
}

// pause sleeps for d unless the context ends first.
func (w *Writer) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

package keyed

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/registry"
)

// defaultQueueSize is each worker's buffered channel depth: large enough
// to absorb a reader's batch (spec.md §5's default BYTEWAX_BATCH_SIZE of
// 1,000) without blocking the dispatcher on a single slow key.
const defaultQueueSize = 1000

// Runtime is the key-partitioned dispatcher: it routes raw rows to a
// per-vehicle worker goroutine, lazily creating one on first sight of a
// key and running the rest of that key's traffic through the same
// worker for the runtime's lifetime (spec.md §5).
type Runtime struct {
	reg       *registry.Registry
	sinks     Sinks
	queueSize int
	log       zerolog.Logger

	workers *xsync.Map[string, *worker]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	createMu sync.Mutex
}

// NewRuntime returns a Runtime ready to accept rows. reg is shared
// read-only across every worker's event detector; sinks are shared
// *database.Sink[T] instances (one per record type, not one per worker —
// the staging-table lifecycle is keyed by a worker id assigned at
// process-role startup, not by vehicle).
func NewRuntime(reg *registry.Registry, sinks Sinks, log zerolog.Logger) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runtime{
		reg:       reg,
		sinks:     sinks,
		queueSize: defaultQueueSize,
		log:       log,
		workers:   xsync.NewMap[string, *worker](),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit routes row to its vehicle's worker, creating the worker on first
// sight of the key. It blocks only if that worker's own queue is full,
// never on any other key's backlog.
func (rt *Runtime) Submit(row eke.RawRow) error {
	w, err := rt.workerFor(row.Vehicle)
	if err != nil {
		return err
	}
	select {
	case w.in <- row:
		return nil
	case <-rt.ctx.Done():
		return rt.ctx.Err()
	}
}

func (rt *Runtime) workerFor(vehicle string) (*worker, error) {
	if w, ok := rt.workers.Load(vehicle); ok {
		return w, nil
	}

	rt.createMu.Lock()
	defer rt.createMu.Unlock()
	if w, ok := rt.workers.Load(vehicle); ok {
		return w, nil
	}

	w, err := newWorker(vehicle, rt.reg, rt.sinks, rt.queueSize, rt.log)
	if err != nil {
		return nil, err
	}
	rt.workers.Store(vehicle, w)
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		w.run(rt.ctx)
	}()
	return w, nil
}

// ActiveVehicleKeys implements metrics.RuntimeStats.
func (rt *Runtime) ActiveVehicleKeys() int {
	return rt.workers.Size()
}

// QueuedRecords implements metrics.RuntimeStats, summing every worker's
// buffered-but-unprocessed row count.
func (rt *Runtime) QueuedRecords() int {
	total := 0
	rt.workers.Range(func(_ string, w *worker) bool {
		total += w.queued()
		return true
	})
	return total
}

// Shutdown closes every worker's queue, letting each drain whatever it
// already buffered before exiting, then waits for all worker goroutines
// to finish. Callers must stop calling Submit before invoking Shutdown —
// sending on a closed worker channel panics.
func (rt *Runtime) Shutdown() {
	rt.workers.Range(func(_ string, w *worker) bool {
		close(w.in)
		return true
	})
	rt.wg.Wait()
	rt.cancel()
}

package workers

import (
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// Cloner is implemented by worker contexts. Run hands every chunk its own
// copy, so workers never alias each other's state and no locking is needed.
type Cloner[C any] interface {
	Clone() C
}

// WorkFunc processes one chunk using a private copy of the shared context.
// It must not retain the chunk after returning.
type WorkFunc[C any, T any, R any] func(ctx C, chunk []T) ([]R, error)

// ProgressFunc receives the accumulated results after each chunk is
// collected, together with how many input items those results cover.
type ProgressFunc[R any] func(results []R, done, total int)

// PanicError is returned by Run when a worker panics.
type PanicError struct {
	Chunk int
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker for chunk %d panicked: %v", e.Chunk, e.Value)
}

// ChunkSize returns ceil(n/workers), the size of every chunk but the last.
func ChunkSize(n, workers int) int {
	if workers < 1 {
		workers = 1
	}
	return (n + workers - 1) / workers
}

// Split cuts items into exactly workers contiguous chunks. Trailing chunks
// may be short or empty. Each chunk is capacity-limited so appends inside a
// worker cannot spill into its neighbour.
func Split[T any](items []T, workers int) [][]T {
	if workers < 1 {
		workers = 1
	}
	size := ChunkSize(len(items), workers)
	chunks := make([][]T, workers)
	for i := 0; i < workers; i++ {
		start := i * size
		end := start + size
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		chunks[i] = items[start:end:end]
	}
	return chunks
}

// Run splits items into workers chunks and processes each chunk on its own
// goroutine with a cloned context. Results are appended in chunk order, not
// completion order: chunk 0's outputs always precede chunk 1's. onProgress,
// when non-nil, fires once per collected chunk on the calling goroutine.
//
// A failing or panicking worker fails the whole call; partial results are
// discarded.
func Run[C Cloner[C], T any, R any](items []T, ctx C, workers int, work WorkFunc[C, T, R], onProgress ProgressFunc[R]) ([]R, error) {
	chunks := Split(items, workers)
	size := ChunkSize(len(items), len(chunks))

	outputs := make([][]R, len(chunks))
	failed := make([]bool, len(chunks))
	done := make([]chan struct{}, len(chunks))

	var g errgroup.Group
	for i, chunk := range chunks {
		done[i] = make(chan struct{})
		workCtx := ctx.Clone()
		g.Go(func() (err error) {
			defer close(done[i])
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Chunk: i, Value: r, Stack: debug.Stack()}
				}
				failed[i] = err != nil
			}()
			out, err := work(workCtx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			outputs[i] = out
			return nil
		})
	}

	var results []R
	for i := range chunks {
		<-done[i]
		if failed[i] {
			break
		}
		results = append(results, outputs[i]...)
		if onProgress != nil {
			covered := (i + 1) * size
			if covered > len(items) {
				covered = len(items)
			}
			onProgress(results, covered, len(items))
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

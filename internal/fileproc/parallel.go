// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panbanda/sift/pkg/source"
	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CPU workloads.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func(path string)

// Workers returns n when positive, otherwise the default worker count.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// Loaded is the content of one scanned file, or the error reading it.
type Loaded struct {
	Record  source.FileRecord
	Content []byte
	Err     error
}

// ReadAll reads every record from src using a bounded pool of workers.
// Results are returned in the same order as records so that downstream
// consumers stay deterministic. Cancellation stops scheduling new reads;
// records that were never read carry the context error.
func ReadAll(ctx context.Context, src source.ContentSource, records []source.FileRecord, maxWorkers int, onProgress ProgressFunc) []Loaded {
	if len(records) == 0 {
		return nil
	}
	return MapOrdered(ctx, records, maxWorkers, func(_ context.Context, rec source.FileRecord) Loaded {
		content, err := src.Read(rec.Path)
		if onProgress != nil {
			onProgress(rec.RelPath)
		}
		return Loaded{Record: rec, Content: content, Err: err}
	}, func(rec source.FileRecord, err error) Loaded {
		return Loaded{Record: rec, Err: err}
	})
}

// MapOrdered applies fn to every item in parallel and returns the results
// in input order. Each worker writes only to its own slot, so no locking is
// needed on the result slice. When ctx is cancelled, items not yet started
// are filled with onCancel.
func MapOrdered[In, Out any](
	ctx context.Context,
	items []In,
	maxWorkers int,
	fn func(context.Context, In) Out,
	onCancel func(In, error) Out,
) []Out {
	results := make([]Out, len(items))
	if len(items) == 0 {
		return results
	}

	p := pool.New().WithMaxGoroutines(Workers(maxWorkers))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(items); j++ {
				results[j] = onCancel(items[j], err)
			}
			break
		}
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				results[i] = onCancel(item, err)
				return
			}
			results[i] = fn(ctx, item)
		})
	}
	p.Wait()

	return results
}

// CollectErrors returns the read failures in loaded as a ProcessingErrors.
func CollectErrors(loaded []Loaded) *ProcessingErrors {
	errs := &ProcessingErrors{}
	for _, l := range loaded {
		if l.Err != nil {
			errs.Add(l.Record.RelPath, l.Err)
		}
	}
	return errs
}

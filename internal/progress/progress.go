// Package progress renders analysis progress on stderr.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Reporter shows one spinner per pipeline stage and counts the files
// processed within it. A disabled Reporter is a no-op, so callers can wire
// it unconditionally.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	bar     *progressbar.ProgressBar
	stage   string
	stages  int
}

// New creates a reporter writing to w. A nil w means stderr.
func New(w io.Writer, enabled bool) *Reporter {
	if w == nil {
		w = os.Stderr
	}
	return &Reporter{w: w, enabled: enabled}
}

// Stage finishes the current stage and starts a spinner for name.
func (r *Reporter) Stage(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish()
	r.stage = name
	r.stages++
	if !r.enabled {
		return
	}
	r.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(name),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// File records one processed file. Safe for concurrent use.
func (r *Reporter) File(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

// Current returns the running stage and how many stages have started.
func (r *Reporter) Current() (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage, r.stages
}

// Done clears the spinner.
func (r *Reporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish()
}

// Fail clears the spinner and names the stage that failed.
func (r *Reporter) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish()
	if r.enabled && r.stage != "" {
		fmt.Fprintf(r.w, "  %s error: %v\n", r.stage, err)
	}
}

func (r *Reporter) finish() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	_ = r.bar.Clear()
	r.bar = nil
}

package progress

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporterDisabledWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)
	r.Stage("scan")
	r.File("a.js")
	r.Fail(errors.New("boom"))
	r.Done()

	assert.Empty(t, buf.String())
	stage, n := r.Current()
	assert.Equal(t, "scan", stage)
	assert.Equal(t, 1, n)
}

func TestReporterTracksStages(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)
	r.Stage("scan")
	r.Stage("load")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.File("x.js")
		}()
	}
	wg.Wait()

	stage, n := r.Current()
	assert.Equal(t, "load", stage)
	assert.Equal(t, 2, n)
	r.Done()
}

func TestReporterFailNamesStage(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)
	r.Stage("graph")
	r.Fail(errors.New("invariant violation"))

	assert.Contains(t, buf.String(), "graph error: invariant violation")
}

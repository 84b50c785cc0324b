package fileproc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/panbanda/sift/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(paths ...string) []source.FileRecord {
	out := make([]source.FileRecord, len(paths))
	for i, p := range paths {
		out[i] = source.FileRecord{Path: p, RelPath: p}
	}
	return out
}

func TestReadAllPreservesOrder(t *testing.T) {
	files := map[string][]byte{}
	var paths []string
	for i := 0; i < 50; i++ {
		p := fmt.Sprintf("f%02d.js", i)
		files[p] = []byte(p)
		paths = append(paths, p)
	}
	src := source.NewMap(files)

	var ticks atomic.Int32
	loaded := ReadAll(context.Background(), src, records(paths...), 4, func(string) { ticks.Add(1) })

	require.Len(t, loaded, 50)
	for i, l := range loaded {
		assert.Equal(t, paths[i], l.Record.RelPath)
		assert.Equal(t, paths[i], string(l.Content))
		assert.NoError(t, l.Err)
	}
	assert.Equal(t, int32(50), ticks.Load())
}

func TestReadAllRecordsErrors(t *testing.T) {
	src := source.NewMap(map[string][]byte{"a.js": []byte("x")})
	loaded := ReadAll(context.Background(), src, records("a.js", "missing.js"), 2, nil)

	require.Len(t, loaded, 2)
	assert.NoError(t, loaded[0].Err)
	assert.Error(t, loaded[1].Err)

	errs := CollectErrors(loaded)
	assert.True(t, errs.HasErrors())
	assert.Equal(t, "missing.js", errs.Errors[0].Path)
}

func TestReadAllEmpty(t *testing.T) {
	assert.Nil(t, ReadAll(context.Background(), source.NewMap(nil), nil, 0, nil))
}

func TestReadAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := source.NewMap(map[string][]byte{"a.js": []byte("x"), "b.js": []byte("y")})
	loaded := ReadAll(ctx, src, records("a.js", "b.js"), 1, nil)

	require.Len(t, loaded, 2)
	for _, l := range loaded {
		assert.True(t, errors.Is(l.Err, context.Canceled))
	}
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(3))
	assert.Greater(t, Workers(0), 0)
}

func TestProcessingErrors(t *testing.T) {
	errs := &ProcessingErrors{}
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no errors", errs.Error())

	errs.Add("a.js", errors.New("boom"))
	assert.Equal(t, "a.js: boom", errs.Error())

	errs.Add("b.js", errors.New("bang"))
	assert.Contains(t, errs.Error(), "2 files failed")
}

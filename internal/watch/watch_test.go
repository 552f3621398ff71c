package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/propfinder-go/internal/dataset"
	"github.com/Benny93/propfinder-go/internal/dataset/datasettest"
	"github.com/Benny93/propfinder-go/internal/finder"
	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metrics"
)

type nopSearcher struct{}

func (nopSearcher) Search(context.Context, string, int) ([]graph.PropertyID, error) {
	return nil, nil
}

func (nopSearcher) Probe(context.Context) error {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFinder(snap *dataset.Snapshot) *finder.Finder {
	return finder.New(nopSearcher{}, snap, finder.DefaultConfig(), discardLogger())
}

const extraLabels = `node1	label	node2
P569	label	'date of birth'@en
P570	label	'date of death'@en
P19	label	'place of birth'@en
P580	label	'start time'@en
P582	label	'end time'@en
P585	label	'point in time'@en
P1082	label	'population'@en
P2048	label	'height'@en
`

func TestReload(t *testing.T) {
	t.Parallel()

	files := datasettest.Write(t, t.TempDir())
	f := newFinder(dataset.Empty())
	m := metrics.New()

	w, err := New(files, Options{}, f, m, discardLogger())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Reload())
	assert.Equal(t, 7, f.Snapshot().Metadata.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatasetReloads.WithLabelValues("ok")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.DatasetProperties))
}

func TestReload_FailureKeepsSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := datasettest.Write(t, dir)
	prev := datasettest.Load(t)
	f := newFinder(prev)
	m := metrics.New()

	w, err := New(files, Options{}, f, m, discardLogger())
	require.NoError(t, err)
	defer w.Close()

	datasettest.WriteFile(t, filepath.Join(dir, files.Constraints), "{broken")

	assert.Error(t, w.Reload())
	assert.Same(t, prev, f.Snapshot())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatasetReloads.WithLabelValues("error")))
}

func TestRun_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := datasettest.Write(t, dir)
	f := newFinder(datasettest.Load(t))

	w, err := New(files, Options{Debounce: 50 * time.Millisecond, Ignore: []string{"*.swp"}}, f, nil, discardLogger())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	datasettest.WriteFile(t, filepath.Join(dir, files.Labels), extraLabels)

	require.Eventually(t, func() bool {
		return f.Snapshot().Metadata.Exists("P2048")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_Relevant(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := datasettest.Write(t, dir)
	w, err := New(files, Options{Ignore: []string{"# editor files", ".*", "*.swp", "*~"}}, newFinder(dataset.Empty()), nil, discardLogger())
	require.NoError(t, err)
	defer w.Close()

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"Write", fsnotify.Event{Name: filepath.Join(dir, "labels.tsv.gz"), Op: fsnotify.Write}, true},
		{"Create", fsnotify.Event{Name: filepath.Join(dir, "words.txt"), Op: fsnotify.Create}, true},
		{"Rename", fsnotify.Event{Name: filepath.Join(dir, "constraints.json"), Op: fsnotify.Rename}, true},
		{"Chmod", fsnotify.Event{Name: filepath.Join(dir, "labels.tsv.gz"), Op: fsnotify.Chmod}, false},
		{"SwapFile", fsnotify.Event{Name: filepath.Join(dir, "labels.tsv.swp"), Op: fsnotify.Write}, false},
		{"Hidden", fsnotify.Event{Name: filepath.Join(dir, ".labels.tsv.gz.tmp"), Op: fsnotify.Create}, false},
		{"Backup", fsnotify.Event{Name: filepath.Join(dir, "constraints.json~"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.ev))
		})
	}
}

func TestWatchDirs(t *testing.T) {
	t.Parallel()

	files := dataset.Files{
		Dir:         "/data",
		Labels:      "labels.tsv",
		Datatypes:   "types/datatypes.tsv",
		Constraints: "/etc/propfinder/constraints.json",
		Words:       "words.txt",
	}

	assert.Equal(t, []string{"/data", "/data/types", "/etc/propfinder"}, watchDirs(files))
}

func TestNew_MissingDir(t *testing.T) {
	t.Parallel()

	files := datasettest.Files(filepath.Join(t.TempDir(), "missing"))
	_, err := New(files, Options{}, newFinder(dataset.Empty()), nil, discardLogger())
	assert.Error(t, err)

	_, statErr := os.Stat(files.Dir)
	assert.True(t, os.IsNotExist(statErr))
}

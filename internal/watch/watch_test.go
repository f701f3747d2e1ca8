package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	mu    sync.Mutex
	value string
	err   error
}

func (d *fakeDetector) set(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = v
}

func (d *fakeDetector) Fingerprint(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func start(t *testing.T, w *Watcher, action func(context.Context) error) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	require.NoError(t, w.Prime(ctx))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, action) }()
	return func() {
		stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not stop")
		}
	}
}

func TestWatcher_FiresOnChange(t *testing.T) {
	det := &fakeDetector{value: "a"}
	w := New(Options{Interval: 5 * time.Millisecond, Detector: det, Logger: quietLogger()})

	var builds atomic.Int32
	stop := start(t, w, func(context.Context) error {
		builds.Add(1)
		return nil
	})
	defer stop()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, builds.Load(), "baseline must not trigger a build")

	det.set("b")
	require.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), builds.Load())
}

func TestWatcher_Debounce(t *testing.T) {
	det := &fakeDetector{value: "a"}
	w := New(Options{
		Interval: 5 * time.Millisecond,
		Debounce: 80 * time.Millisecond,
		Detector: det,
		Logger:   quietLogger(),
	})

	var builds atomic.Int32
	stop := start(t, w, func(context.Context) error {
		builds.Add(1)
		return nil
	})
	defer stop()

	for _, v := range []string{"b", "c", "d"} {
		det.set(v)
		time.Sleep(20 * time.Millisecond)
	}
	assert.Zero(t, builds.Load())

	require.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(1), builds.Load())
	assert.GreaterOrEqual(t, w.Stats().Changes, int64(1))
}

func TestWatcher_ActionErrorsAreNotFatal(t *testing.T) {
	det := &fakeDetector{value: "a"}
	w := New(Options{Interval: 5 * time.Millisecond, Detector: det, Logger: quietLogger()})

	var calls atomic.Int32
	stop := start(t, w, func(context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	})
	defer stop()
	require.Eventually(t, func() bool { return w.Stats().Checks > 0 }, time.Second, time.Millisecond)

	det.set("b")
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	det.set("c")
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	stats := w.Stats()
	assert.Equal(t, int64(2), stats.Errors)
	assert.Zero(t, stats.Builds)
}

func TestWatcher_OwnWritesDoNotRetrigger(t *testing.T) {
	det := &fakeDetector{value: "a"}
	w := New(Options{Interval: 5 * time.Millisecond, Detector: det, Logger: quietLogger()})

	var builds atomic.Int32
	stop := start(t, w, func(context.Context) error {
		builds.Add(1)
		det.set("rewritten")
		return nil
	})
	defer stop()
	require.Eventually(t, func() bool { return w.Stats().Checks > 0 }, time.Second, time.Millisecond)

	det.set("b")
	require.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), builds.Load())
}

func TestWatcher_ChangeAfterPrimeIsNotLost(t *testing.T) {
	det := &fakeDetector{value: "a"}
	w := New(Options{Interval: 5 * time.Millisecond, Detector: det, Logger: quietLogger()})
	require.NoError(t, w.Prime(context.Background()))

	// Edited before polling starts.
	det.set("b")

	var builds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			builds.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_PrimeError(t *testing.T) {
	det := &fakeDetector{err: errors.New("unreadable")}
	w := New(Options{Detector: det, Logger: quietLogger()})

	err := w.Prime(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreadable")
	assert.Equal(t, int64(1), w.Stats().Errors)
}

func TestScanDetector(t *testing.T) {
	files := []*ir.SourceFile{
		{RelPath: "b.prompt.md", Hash: "2"},
		{RelPath: "a.prompt.md", Hash: "1"},
	}
	det := ScanDetector(func() ([]*ir.SourceFile, error) { return files, nil })

	first, err := det.Fingerprint(context.Background())
	require.NoError(t, err)

	files[0], files[1] = files[1], files[0]
	reordered, err := det.Fingerprint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, reordered)

	files[0] = &ir.SourceFile{RelPath: "a.prompt.md", Hash: "changed"}
	changed, err := det.Fingerprint(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	failing := ScanDetector(func() ([]*ir.SourceFile, error) { return nil, errors.New("gone") })
	_, err = failing.Fingerprint(context.Background())
	assert.Error(t, err)
}

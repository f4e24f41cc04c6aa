package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgeorgiev/filemon/internal/config"
	"github.com/rgeorgiev/filemon/internal/filter"
	"github.com/rgeorgiev/filemon/internal/notify"
)

type stubNotifier struct {
	mu        sync.Mutex
	events    []notify.Event
	startups  int
	shutdowns int
	crashes   []error
	fileErr   error
}

func (s *stubNotifier) FileDetected(ev notify.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.fileErr
}

func (s *stubNotifier) Startup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startups++
	return nil
}

func (s *stubNotifier) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdowns++
	return nil
}

func (s *stubNotifier) Crashed(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crashes = append(s.crashes, err)
	return nil
}

func (s *stubNotifier) Events() []notify.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Event(nil), s.events...)
}

func (s *stubNotifier) Startups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startups
}

func (s *stubNotifier) Shutdowns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdowns
}

func mustFilter(t *testing.T, extensions []string) *filter.Filter {
	t.Helper()
	flt, err := filter.New(extensions, nil)
	require.NoError(t, err)
	return flt
}

func TestHandleCreateNotifiesOnMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.MKV")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	stub := &stubNotifier{}
	handleCreate(path, mustFilter(t, []string{"mkv"}), stub)

	events := stub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, path, events[0].Path)
	assert.Equal(t, "mkv", events[0].Ext)
	assert.False(t, events[0].Time.IsZero())
}

func TestHandleCreateIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	stub := &stubNotifier{}
	handleCreate(path, mustFilter(t, []string{"mkv"}), stub)

	assert.Empty(t, stub.Events())
}

func TestHandleCreateIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "season.mkv")
	require.NoError(t, os.Mkdir(path, 0755))

	stub := &stubNotifier{}
	handleCreate(path, mustFilter(t, []string{"mkv"}), stub)

	assert.Empty(t, stub.Events())
}

func TestHandleCreateSkipsVanishedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.mkv")

	stub := &stubNotifier{}
	handleCreate(path, mustFilter(t, []string{"mkv"}), stub)

	assert.Empty(t, stub.Events())
}

func TestHandleCreateSurvivesDeliveryFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mkv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	stub := &stubNotifier{fileErr: errors.New("telegram API returned status 401")}
	handleCreate(path, mustFilter(t, []string{"mkv"}), stub)

	// One attempt, dropped afterwards; the error is logged, not returned.
	assert.Len(t, stub.Events(), 1)
}

func TestRunNotifiesOnCreatedFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		WatchFolder: dir,
		Environment: config.EnvDev,
		Extensions:  []string{"mkv"},
	}

	stub := &stubNotifier{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, mustFilter(t, []string{"mkv"}), stub)
	}()

	// Startup fires once the watch is attached.
	require.Eventually(t, func() bool { return stub.Startups() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.mkv"), []byte("x"), 0644))
	require.Eventually(t, func() bool { return len(stub.Events()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, stub.Events(), 1)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
	assert.Equal(t, 1, stub.Shutdowns())
}

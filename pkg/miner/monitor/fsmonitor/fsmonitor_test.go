package fsmonitor_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/monitor/fsmonitor"
)

type recordingSink struct {
	mu      sync.Mutex
	created []fileref.Ref
	updated []fileref.Ref
	deleted []fileref.Ref
	moved   []struct{ from, to fileref.Ref }
}

func (r *recordingSink) ItemCreated(file fileref.Ref, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, file)
}
func (r *recordingSink) ItemUpdated(file fileref.Ref, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, file)
}
func (r *recordingSink) ItemDeleted(file fileref.Ref, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, file)
}
func (r *recordingSink) ItemMoved(from, to fileref.Ref, _ bool, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moved = append(r.moved, struct{ from, to fileref.Ref }{from, to})
}

func (r *recordingSink) snapshot() (created, updated, deleted int, moved int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created), len(r.updated), len(r.deleted), len(r.moved)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestWatchReportsCreateAndUpdate(t *testing.T) {
	dir := t.TempDir()
	m, err := fsmonitor.New(nil, 5*time.Millisecond)
	require.NoError(t, err)
	defer m.Close()

	sink := &recordingSink{}
	require.NoError(t, m.Watch(context.Background(), fileref.New(dir), sink))

	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	waitFor(t, time.Second, func() bool {
		created, _, _, _ := sink.snapshot()
		return created >= 1
	})

	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))
	waitFor(t, time.Second, func() bool {
		_, updated, _, _ := sink.snapshot()
		return updated >= 1
	})
}

func TestWatchPairsRenameIntoMove(t *testing.T) {
	dir := t.TempDir()
	m, err := fsmonitor.New(nil, 50*time.Millisecond)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	sink := &recordingSink{}
	require.NoError(t, m.Watch(context.Background(), fileref.New(dir), sink))

	// Moves are paired by base name, so the rename keeps the name and
	// changes the parent directory.
	src := filepath.Join(dir, "old.txt")
	dst := filepath.Join(dir, "sub", "old.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	waitFor(t, time.Second, func() bool {
		created, _, _, _ := sink.snapshot()
		return created >= 1
	})

	require.NoError(t, os.Rename(src, dst))

	waitFor(t, 2*time.Second, func() bool {
		_, _, _, moved := sink.snapshot()
		return moved >= 1
	})
}

func TestUnwatchStopsReporting(t *testing.T) {
	dir := t.TempDir()
	m, err := fsmonitor.New(nil, 5*time.Millisecond)
	require.NoError(t, err)
	defer m.Close()

	sink := &recordingSink{}
	root := fileref.New(dir)
	require.NoError(t, m.Watch(context.Background(), root, sink))
	m.Unwatch(root)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)

	created, _, _, _ := sink.snapshot()
	require.Equal(t, 0, created)
}

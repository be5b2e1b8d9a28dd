package source_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/localmesh/fsminer/pkg/miner/crawler"
	"github.com/localmesh/fsminer/pkg/miner/event"
	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/policy"
	"github.com/localmesh/fsminer/pkg/miner/source"
	"github.com/localmesh/fsminer/pkg/miner/store/memstore"
)

// fakeCrawler calls the visitor for a fixed tree without touching disk.
type fakeCrawler struct {
	dirs  []fileref.Ref
	files map[fileref.Ref][]fileref.Ref // dir -> children
}

func (f *fakeCrawler) Walk(_ context.Context, root fileref.Ref, _ bool, visitor crawler.Visitor) error {
	children := f.files[root]
	var refs []fileref.Ref
	for _, c := range children {
		refs = append(refs, c)
		if contains(f.dirs, c) {
			visitor.CheckDirectory(c)
		} else {
			visitor.CheckFile(c)
		}
	}
	visitor.CheckDirectoryContents(root, refs)
	return nil
}

func contains(list []fileref.Ref, item fileref.Ref) bool {
	for _, d := range list {
		if d.Equal(item) {
			return true
		}
	}
	return false
}

func newAdapter(t *testing.T, ignore func(fileref.Ref, []fileref.Ref) bool) (*source.Adapter, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	filter := policy.New(policy.Predicates{}, s)
	return source.New(source.Config{
		Filter:                  filter,
		Store:                   s,
		Sink:                    nil,
		Dispatch:                func(f func()) { f() },
		IgnoreDirectoryContents: ignore,
	}), s
}

func TestRunCrawlCollectsAcceptedItems(t *testing.T) {
	a := fileref.New("/root/a.txt")
	root := fileref.New("/root")
	c := &fakeCrawler{
		files: map[fileref.Ref][]fileref.Ref{
			root: {a},
		},
	}
	adapter, _ := newAdapter(t, nil)

	result, walkErr := adapter.RunCrawl(context.Background(), c, event.DirectoryTask{Root: root, Recurse: true})
	require.NoError(t, walkErr)
	require.Len(t, result.Items, 1)
	require.True(t, result.Items[0].File.Equal(a))
	require.True(t, result.Items[0].Enqueue)
	require.Equal(t, 1, result.Counts.FilesFound)
}

func TestCheckDirectoryContentsVetoRecountsIgnored(t *testing.T) {
	root := fileref.New("/root")
	backup := root.Join("backup.bak")
	c := &fakeCrawler{
		files: map[fileref.Ref][]fileref.Ref{root: {backup}},
	}
	adapter, _ := newAdapter(t, func(_ fileref.Ref, children []fileref.Ref) bool {
		return len(children) == 1 && children[0].Base() == "backup.bak"
	})

	result, err := adapter.RunCrawl(context.Background(), c, event.DirectoryTask{Root: root, Recurse: true})
	require.NoError(t, err)
	require.Empty(t, result.Items, "vetoed subtree contents must not be enqueued")
	require.Equal(t, 0, result.Counts.FilesFound)
	require.Equal(t, 1, result.Counts.FilesIgnored)
}

type recordingSink struct {
	created []fileref.Ref
	deleted []fileref.Ref
	moved   []struct{ from, to fileref.Ref }
}

func (r *recordingSink) PushCreated(file fileref.Ref, _ bool) { r.created = append(r.created, file) }
func (r *recordingSink) PushUpdated(fileref.Ref, bool)        {}
func (r *recordingSink) PushDeleted(file fileref.Ref, _ bool) { r.deleted = append(r.deleted, file) }
func (r *recordingSink) PushMoved(from, to fileref.Ref, _ bool) {
	r.moved = append(r.moved, struct{ from, to fileref.Ref }{from, to})
}

func TestItemMovedSourceTrackedTargetAccepted(t *testing.T) {
	s := memstore.New()
	from := fileref.New("/root/sub")
	to := fileref.New("/root/new")
	s.Seed(from.URI(), "", "sub", time.Unix(0, 0))

	sink := &recordingSink{}
	filter := policy.New(policy.Predicates{}, s)
	adapter := source.New(source.Config{
		Filter:   filter,
		Store:    s,
		Sink:     sink,
		Dispatch: func(f func()) { f() },
	})

	adapter.ItemMoved(from, to, true, true)
	require.Len(t, sink.moved, 1)
	require.True(t, sink.moved[0].from.Equal(from))
	require.True(t, sink.moved[0].to.Equal(to))
}

func TestItemMovedSourceUntrackedEnqueuesCreated(t *testing.T) {
	s := memstore.New()
	from := fileref.New("/root/ghost.txt")
	to := fileref.New("/root/new.txt")

	sink := &recordingSink{}
	filter := policy.New(policy.Predicates{}, s)
	adapter := source.New(source.Config{
		Filter:   filter,
		Store:    s,
		Sink:     sink,
		Dispatch: func(f func()) { f() },
	})

	adapter.ItemMoved(from, to, false, true)
	require.Len(t, sink.created, 1)
	require.True(t, sink.created[0].Equal(to))
}

func TestItemMovedUnmonitoredDirectoryReseedsRecursiveTask(t *testing.T) {
	s := memstore.New()
	from := fileref.New("/outside/sub")
	to := fileref.New("/root/sub")

	var reseeded fileref.Ref
	var recurse bool
	filter := policy.New(policy.Predicates{}, s)
	adapter := source.New(source.Config{
		Filter:   filter,
		Store:    s,
		Sink:     &recordingSink{},
		Dispatch: func(f func()) { f() },
		ReseedDirectory: func(root fileref.Ref, r bool) {
			reseeded = root
			recurse = r
		},
	})

	adapter.ItemMoved(from, to, true, false)
	require.True(t, reseeded.Equal(to))
	require.True(t, recurse)
}

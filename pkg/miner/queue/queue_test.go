package queue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/queue"
)

func TestPriorityOrder(t *testing.T) {
	q := queue.New()
	a := fileref.New("/root/a.txt")
	b := fileref.New("/root/b.txt")

	q.PushCreated(a, false)
	q.PushDeleted(b, false)

	item := q.Dequeue()
	require.Equal(t, queue.KindDeleted, item.Kind)
	require.True(t, item.File.Equal(b))

	item = q.Dequeue()
	require.Equal(t, queue.KindCreated, item.Kind)
	require.True(t, item.File.Equal(a))
}

func TestDeletedCompactsPendingCreated(t *testing.T) {
	q := queue.New()
	file := fileref.New("/root/a.txt")

	q.PushCreated(file, false)
	q.PushDeleted(file, false)

	// The Deleted entry dequeues first (priority), then the stale Created
	// entry is skipped silently rather than producing a spurious insert.
	item := q.Dequeue()
	require.Equal(t, queue.KindDeleted, item.Kind)

	item = q.Dequeue()
	require.Equal(t, queue.None, item.Kind)
}

func TestRemoveDirectoryPurgesDescendants(t *testing.T) {
	q := queue.New()
	root := fileref.New("/root/sub")
	child := fileref.New("/root/sub/c.txt")
	sibling := fileref.New("/root/other.txt")

	q.PushCreated(child, false)
	q.PushCreated(sibling, false)
	q.RemoveDirectory(root)

	item := q.Dequeue()
	require.Equal(t, queue.KindCreated, item.Kind)
	require.True(t, item.File.Equal(sibling))

	item = q.Dequeue()
	require.Equal(t, queue.None, item.Kind)
}

func TestEmptyAndLen(t *testing.T) {
	q := queue.New()
	require.True(t, q.Empty())
	q.PushUpdated(fileref.New("/root/a.txt"), false)
	require.False(t, q.Empty())
	require.Equal(t, 1, q.Len())
}

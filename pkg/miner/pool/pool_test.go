package pool_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/pool"
)

func TestPoolEnforcesLimit(t *testing.T) {
	p := pool.New(2)
	ctx := context.Background()

	_, ok := p.Start(ctx, fileref.New("/root/a.txt"))
	require.True(t, ok)
	_, ok = p.Start(ctx, fileref.New("/root/b.txt"))
	require.True(t, ok)
	require.True(t, p.Full())

	_, ok = p.Start(ctx, fileref.New("/root/c.txt"))
	require.False(t, ok, "pool must not exceed its configured limit")

	p.Complete(fileref.New("/root/a.txt"))
	require.False(t, p.Full())
	_, ok = p.Start(ctx, fileref.New("/root/c.txt"))
	require.True(t, ok)
}

func TestPoolRejectsDuplicateFile(t *testing.T) {
	p := pool.New(4)
	ctx := context.Background()
	file := fileref.New("/root/a.txt")

	_, ok := p.Start(ctx, file)
	require.True(t, ok)
	_, ok = p.Start(ctx, file)
	require.False(t, ok, "at most one ProcessJob per FileRef at any instant")
}

func TestCancelUnderFiresTokenAndFreesSlot(t *testing.T) {
	p := pool.New(4)
	ctx := context.Background()
	root := fileref.New("/root/sub")
	child := fileref.New("/root/sub/c.txt")

	job, ok := p.Start(ctx, child)
	require.True(t, ok)

	cancelled := p.CancelUnder(root)
	require.Len(t, cancelled, 1)
	require.Equal(t, job.ID, cancelled[0].ID)

	select {
	case <-job.Context().Done():
	default:
		t.Fatal("expected job context to be cancelled")
	}

	require.Equal(t, 0, p.Len())
	_, ok = p.Lookup(child)
	require.False(t, ok)
}

package basicextractor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/localmesh/fsminer/pkg/miner/extractor/basicextractor"
	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/store"
)

func TestProcessFileAcceptsAndNotifies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	notified := make(chan fileref.Ref, 1)
	ex := basicextractor.New(func(file fileref.Ref, err error) {
		require.NoError(t, err)
		notified <- file
	})

	builder := store.NewMutationBuilder()
	file := fileref.New(path)
	accepted := ex.ProcessFile(context.Background(), file, builder)
	require.True(t, accepted)

	select {
	case got := <-notified:
		require.True(t, got.Equal(file))
	case <-time.After(time.Second):
		t.Fatal("notify was not called")
	}
	require.Equal(t, 3, builder.Len())
}

func TestProcessFileDeclinesMissingFile(t *testing.T) {
	ex := basicextractor.New(func(fileref.Ref, error) {
		t.Fatal("notify should not be called for a declined file")
	})
	builder := store.NewMutationBuilder()
	accepted := ex.ProcessFile(context.Background(), fileref.New("/does/not/exist"), builder)
	require.False(t, accepted)
}

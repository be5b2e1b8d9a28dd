package walker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/localmesh/fsminer/pkg/miner/crawler/walker"
	"github.com/localmesh/fsminer/pkg/miner/fileref"
)

type recordingVisitor struct {
	files        []string
	dirs         []string
	contentsVeto map[string]bool
}

func (v *recordingVisitor) CheckFile(file fileref.Ref) bool {
	v.files = append(v.files, file.Path())
	return true
}

func (v *recordingVisitor) CheckDirectory(dir fileref.Ref) bool {
	v.dirs = append(v.dirs, dir.Path())
	return true
}

func (v *recordingVisitor) CheckDirectoryContents(dir fileref.Ref, _ []fileref.Ref) bool {
	if v.contentsVeto == nil {
		return true
	}
	return !v.contentsVeto[dir.Path()]
}

func TestWalkRecursive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.txt"), []byte("c"), 0o644))

	v := &recordingVisitor{}
	w := walker.New()
	err := w.Walk(context.Background(), fileref.New(root), true, v)
	require.NoError(t, err)

	require.Contains(t, v.files, filepath.Join(root, "a.txt"))
	require.Contains(t, v.files, filepath.Join(root, "sub", "c.txt"))
	require.Contains(t, v.dirs, filepath.Join(root, "sub"))
}

func TestWalkNonRecursiveSkipsSubdirContents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.txt"), []byte("c"), 0o644))

	v := &recordingVisitor{}
	w := walker.New()
	err := w.Walk(context.Background(), fileref.New(root), false, v)
	require.NoError(t, err)

	require.NotContains(t, v.files, filepath.Join(root, "sub", "c.txt"))
}

func TestContentsVetoStopsDescent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cache", "c.txt"), []byte("c"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "cache", "deeper"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cache", "deeper", "d.txt"), []byte("d"), 0o644))

	v := &recordingVisitor{contentsVeto: map[string]bool{filepath.Join(root, "cache"): true}}
	w := walker.New()
	err := w.Walk(context.Background(), fileref.New(root), true, v)
	require.NoError(t, err)

	// cache's direct children are still checked before the veto; the veto
	// stops descent into its subdirectories.
	require.NotContains(t, v.files, filepath.Join(root, "cache", "deeper", "d.txt"))
}

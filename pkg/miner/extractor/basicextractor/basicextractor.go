// Package basicextractor provides a minimal extractor.Extractor that records
// a file's name, size, and modification time as triples. It exists so
// cmd/minerd is runnable end to end without requiring a caller to supply a
// domain-specific extractor, standing in for the many richer extractors
// (media tag readers, document parsers) the host application would plug in
// instead (spec.md §4.6 treats the extractor as entirely host-supplied).
package basicextractor

import (
	"context"
	"os"
	"strconv"

	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/store"
)

// Extractor stats each file directly; there is no third-party metadata
// format here to justify a library, just os.Stat.
type Extractor struct {
	// Notify is called at most once per accepted file, after ProcessFile
	// has returned true, completing the asynchronous half of the extractor
	// contract (spec.md §4.6's notify_file). It is not called if ctx is
	// cancelled before the file's triples are recorded.
	Notify func(file fileref.Ref, err error)
}

// New creates an Extractor that reports completions through notify.
func New(notify func(file fileref.Ref, err error)) *Extractor {
	return &Extractor{Notify: notify}
}

// ProcessFile implements extractor.Extractor. It accepts any path it can
// stat (directories included) and declines the rest, completing asynchronously
// on its own goroutine so the pool's caller is never blocked on disk I/O.
func (e *Extractor) ProcessFile(ctx context.Context, file fileref.Ref, builder *store.MutationBuilder) bool {
	info, err := os.Stat(file.Path())
	if err != nil {
		return false
	}

	go func() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		builder.Add("nfo:fileName", file.Base())
		builder.Add("nfo:fileSize", strconv.FormatInt(info.Size(), 10))
		builder.Add("nfo:fileLastModified", store.FormatModTime(info.ModTime()))

		select {
		case <-ctx.Done():
		default:
			e.Notify(file, nil)
		}
	}()
	return true
}

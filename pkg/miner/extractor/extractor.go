// Package extractor describes the contract an application-supplied metadata
// extractor must honor (spec.md §4.6). The extractor itself lives outside
// this module; this package only pins down the interface and the errors a
// violation of its contract produces.
package extractor

import (
	"context"

	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/store"
)

// Extractor turns a file into triples accumulated in builder.
//
// ProcessFile returns true to accept the file and commit to calling the
// scheduler's completion callback (spec.md §4.6's notify_file) exactly
// once, synchronously or asynchronously, before ctx is done. It returns
// false to decline: no completion call will follow, and any statements
// already added to builder are discarded.
//
// Implementations must select on ctx.Done() and abandon outstanding work
// if it fires (the job was cancelled, e.g. by remove_directory).
type Extractor interface {
	ProcessFile(ctx context.Context, file fileref.Ref, builder *store.MutationBuilder) bool
}

// Func adapts a plain function to the Extractor interface.
type Func func(ctx context.Context, file fileref.Ref, builder *store.MutationBuilder) bool

// ProcessFile implements Extractor.
func (f Func) ProcessFile(ctx context.Context, file fileref.Ref, builder *store.MutationBuilder) bool {
	return f(ctx, file, builder)
}

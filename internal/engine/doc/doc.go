// Package doc publishes versioned tree snapshots. Readers load the
// current tree with a single atomic pointer read and keep using it for
// as long as they like; writers queue edits without blocking and batch
// them into a successor tree on flush.
package doc

import (
	"sync/atomic"

	"github.com/dshills/doctree/internal/engine/tree"
)

// FlushThreshold is the pending edit count that triggers an automatic
// flush from Edit.
const FlushThreshold = 16

// Doc is a document handle. Reads are lock-free and wait-free; edits
// enqueue from any goroutine. Flush batches pending edits into a new
// tree and is the single-writer step: callers that flush from multiple
// goroutines must serialize those calls themselves, or edits may be
// applied against a stale snapshot.
type Doc struct {
	snapshot     atomic.Pointer[tree.Tree]
	pending      *editQueue
	pendingCount atomic.Int64
	version      atomic.Uint64
}

// New returns an empty document.
func New() *Doc {
	d := &Doc{pending: newEditQueue()}
	d.snapshot.Store(tree.New())
	return d
}

// FromString returns a document over the given text.
func FromString(text string) *Doc {
	d := &Doc{pending: newEditQueue()}
	d.snapshot.Store(tree.FromString(text))
	return d
}

// Read returns the current snapshot. The returned tree is immutable
// and remains valid after later edits and flushes.
func (d *Doc) Read() *tree.Tree {
	return d.snapshot.Load()
}

// Edit queues a mutation. When the pending count reaches
// FlushThreshold the queue is flushed inline, so callers that may hit
// the threshold inherit Flush's single-writer obligation: concurrent
// Edit calls must either stay below the threshold or be serialized.
// The queue itself accepts pushes from any goroutine.
func (d *Doc) Edit(e tree.Edit) {
	d.pending.push(e)
	if d.pendingCount.Add(1) >= FlushThreshold {
		d.Flush()
	}
}

// Flush drains every queued edit and publishes the resulting tree.
// A no-op when nothing is pending.
func (d *Doc) Flush() {
	var edits []tree.Edit
	for {
		e, ok := d.pending.pop()
		if !ok {
			break
		}
		edits = append(edits, e)
	}
	if len(edits) == 0 {
		return
	}
	d.pendingCount.Store(0)

	next := d.Read().ApplyEdits(edits)
	d.version.Store(next.Version())
	d.snapshot.Store(next)
}

// Version returns the published tree generation.
func (d *Doc) Version() uint64 {
	return d.version.Load()
}

// ReplaceTree publishes a tree wholesale, bumping the document version
// regardless of the tree's own version. Used for undo and redo, where
// the replacement tree is an older generation.
func (d *Doc) ReplaceTree(t *tree.Tree) {
	d.snapshot.Store(t)
	d.version.Add(1)
}

// Search flushes pending edits and searches the resulting snapshot.
func (d *Doc) Search(pattern string, opts tree.SearchOptions) []tree.SearchMatch {
	d.Flush()
	return d.Read().Search(pattern, opts)
}

// SearchNext flushes and returns the first match strictly after
// startPos.
func (d *Doc) SearchNext(pattern string, startPos int, opts tree.SearchOptions) (tree.SearchMatch, bool) {
	d.Flush()
	return d.Read().SearchNext(pattern, startPos, opts)
}

// SearchPrev flushes and returns the last match ending at or before
// endPos.
func (d *Doc) SearchPrev(pattern string, endPos int, opts tree.SearchOptions) (tree.SearchMatch, bool) {
	d.Flush()
	return d.Read().SearchPrev(pattern, endPos, opts)
}

// ReplaceAll flushes, rewrites every match, publishes the result, and
// returns it.
func (d *Doc) ReplaceAll(pattern, replacement string, opts tree.SearchOptions) *tree.Tree {
	d.Flush()
	cur := d.Read()
	next := cur.ReplaceAll(pattern, replacement, opts)
	if next != cur {
		d.ReplaceTree(next)
	}
	return next
}

// ReplaceWith flushes, rewrites matches selected by replacer,
// publishes the result, and returns it.
func (d *Doc) ReplaceWith(pattern string, opts tree.SearchOptions, replacer func(tree.SearchMatch) (string, bool)) *tree.Tree {
	d.Flush()
	cur := d.Read()
	next := cur.ReplaceWith(pattern, opts, replacer)
	if next != cur {
		d.ReplaceTree(next)
	}
	return next
}

package doc

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/doctree/internal/engine/tree"
)

func TestNewAndFromString(t *testing.T) {
	d := New()
	assert.Equal(t, 0, d.Read().ByteCount())
	assert.Equal(t, uint64(0), d.Version())

	d = FromString("hello\nworld")
	assert.Equal(t, "hello\nworld", d.Read().Flatten())
	assert.Equal(t, uint32(1), d.Read().LineCount())
}

func TestEditAndFlush(t *testing.T) {
	d := FromString("hello")
	d.Edit(tree.Insert(5, " world"))

	// Not yet published.
	assert.Equal(t, "hello", d.Read().Flatten())

	d.Flush()
	assert.Equal(t, "hello world", d.Read().Flatten())
	assert.Equal(t, uint64(1), d.Version())
}

func TestFlushNoopWhenEmpty(t *testing.T) {
	d := FromString("hello")
	before := d.Read()
	d.Flush()
	assert.Same(t, before, d.Read())
	assert.Equal(t, uint64(0), d.Version())
}

func TestAutoFlushAtThreshold(t *testing.T) {
	d := New()
	for i := 0; i < FlushThreshold-1; i++ {
		d.Edit(tree.Insert(0, "x"))
	}
	assert.Equal(t, 0, d.Read().ByteCount(), "below threshold nothing is published")

	d.Edit(tree.Insert(0, "x"))
	assert.Equal(t, FlushThreshold, d.Read().ByteCount(), "the threshold edit flushes inline")
}

func TestSnapshotStability(t *testing.T) {
	d := FromString("before")
	old := d.Read()

	d.Edit(tree.Replace(0, 6, "after"))
	d.Flush()

	assert.Equal(t, "before", old.Flatten(), "old snapshot keeps its text")
	assert.Equal(t, "after", d.Read().Flatten())
}

func TestBatchedEditsGetOneVersion(t *testing.T) {
	d := FromString("abc")
	d.Edit(tree.Insert(3, "d"))
	d.Edit(tree.Insert(4, "e"))
	d.Edit(tree.Insert(5, "f"))
	d.Flush()

	assert.Equal(t, "abcdef", d.Read().Flatten())
	assert.Equal(t, uint64(1), d.Version())
}

func TestReplaceTree(t *testing.T) {
	d := FromString("one")
	old := d.Read()

	d.Edit(tree.Replace(0, 3, "two"))
	d.Flush()
	require.Equal(t, uint64(1), d.Version())

	// Undo by republishing the old generation.
	d.ReplaceTree(old)
	assert.Same(t, old, d.Read())
	assert.Equal(t, uint64(2), d.Version(), "republishing still advances the document version")
}

func TestConcurrentProducersSingleFlusher(t *testing.T) {
	// Producers enqueue from many goroutines; one goroutine owns Flush,
	// per the single-writer contract. Edit would flush inline at the
	// threshold, so producers push to the queue directly.
	d := New()

	const (
		goroutines = 8
		perG       = 200
	)
	var producers sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		producers.Add(1)
		go func() {
			defer producers.Done()
			for i := 0; i < perG; i++ {
				// Inserting at 0 is always valid no matter how edits
				// interleave.
				d.pending.push(tree.Insert(0, "ab"))
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		producers.Wait()
		close(done)
	}()
	for flushing := true; flushing; {
		select {
		case <-done:
			flushing = false
		default:
		}
		d.Flush()
	}

	got := d.Read()
	assert.Equal(t, goroutines*perG*2, got.ByteCount(), "every queued edit is applied exactly once")
	require.NoError(t, got.Validate())
}

func TestSingleWriterAutoFlush(t *testing.T) {
	// A single goroutine calling Edit may flush inline at any point;
	// nothing is lost as long as Flush has one logical owner.
	d := New()
	const n = 10 * FlushThreshold
	for i := 0; i < n; i++ {
		d.Edit(tree.Insert(0, "ab"))
	}
	d.Flush()

	got := d.Read()
	assert.Equal(t, n*2, got.ByteCount())
	require.NoError(t, got.Validate())
}

func TestConcurrentReadersDuringEdits(t *testing.T) {
	d := FromString("0123456789")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				tr := d.Read()
				// Whatever generation we loaded must be self-consistent.
				if tr.Flatten() != tr.TextSlice(0, tr.ByteCount()) {
					t.Error("snapshot inconsistent")
					return
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		d.Edit(tree.Insert(0, fmt.Sprintf("%d|", i)))
	}
	d.Flush()
	close(stop)
	wg.Wait()
}

func TestDocSearch(t *testing.T) {
	d := FromString("foo bar")
	d.Edit(tree.Insert(7, " foo"))

	// Search flushes pending edits first.
	got := d.Search("foo", tree.DefaultSearchOptions())
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, 8, got[1].Start)

	m, ok := d.SearchNext("foo", 0, tree.DefaultSearchOptions())
	require.True(t, ok)
	assert.Equal(t, 8, m.Start)

	m, ok = d.SearchPrev("foo", 7, tree.DefaultSearchOptions())
	require.True(t, ok)
	assert.Equal(t, 0, m.Start)
}

func TestDocReplaceAll(t *testing.T) {
	d := FromString("x y x")
	v := d.Version()

	next := d.ReplaceAll("x", "z", tree.DefaultSearchOptions())
	assert.Equal(t, "z y z", next.Flatten())
	assert.Same(t, next, d.Read(), "result is published")
	assert.Equal(t, v+1, d.Version())

	// No match leaves the document untouched.
	before := d.Read()
	d.ReplaceAll("missing", "z", tree.DefaultSearchOptions())
	assert.Same(t, before, d.Read())
	assert.Equal(t, v+1, d.Version())
}

func TestDocReplaceWith(t *testing.T) {
	d := FromString("a b a b a")
	n := 0
	next := d.ReplaceWith("a", tree.DefaultSearchOptions(), func(tree.SearchMatch) (string, bool) {
		n++
		return "A", n > 1
	})
	assert.Equal(t, "a b A b A", next.Flatten())
	assert.Same(t, next, d.Read())
}

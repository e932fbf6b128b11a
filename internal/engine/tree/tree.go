// Package tree implements a versioned, structurally shared span tree
// for text storage. Leaves hold runs of UTF-8 bytes plus zero-width
// embedded objects; every node caches aggregate sums so byte, line,
// character, and UTF-16 addressing resolve without touching most of
// the tree. Trees are immutable: edits produce a new tree sharing all
// untouched nodes with its predecessor.
package tree

import (
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// chunkSize is the target span size when building a tree from a
// string. Spans never split a UTF-8 sequence.
const chunkSize = 1024

// Tree is one immutable version of a document. All read operations are
// safe to call concurrently; mutation happens by building a successor
// via ApplyEdits.
type Tree struct {
	root    *Node
	version uint64

	// Lazily recomputed flattened text. Populated at construction from
	// a string, dropped by edits.
	cachedText atomic.Pointer[string]
}

// New returns an empty tree at version 0.
func New() *Tree {
	t := &Tree{root: newLeaf(nil)}
	empty := ""
	t.cachedText.Store(&empty)
	return t
}

// FromString builds a tree over text, chunked into spans of about
// chunkSize bytes and packed into leaves bottom-up.
func FromString(text string) *Tree {
	if text == "" {
		return New()
	}

	b := []byte(text)

	var leaves []*Node
	spans := make([]Span, 0, MaxSpans)

	pos := 0
	for pos < len(b) {
		end := pos + chunkSize
		if end > len(b) {
			end = len(b)
		}
		// Back off to a UTF-8 boundary.
		e := end
		if e < len(b) {
			for e > pos && b[e]&0xC0 == 0x80 {
				e--
			}
		}
		if e <= pos {
			e = end
		}

		chunk := make([]byte, e-pos)
		copy(chunk, b[pos:e])
		spans = append(spans, newTextSpan(chunk))

		if len(spans) >= MaxSpans {
			leaves = append(leaves, newLeaf(spans))
			spans = make([]Span, 0, MaxSpans)
		}
		pos = e
	}
	if len(spans) > 0 {
		leaves = append(leaves, newLeaf(spans))
	}

	// Pack levels of MaxSpans children until one root remains.
	nodes := leaves
	for len(nodes) > 1 {
		next := make([]*Node, 0, len(nodes)/MaxSpans+1)
		group := make([]*Node, 0, MaxSpans)
		for _, n := range nodes {
			group = append(group, n)
			if len(group) >= MaxSpans {
				next = append(next, newInternal(group))
				group = make([]*Node, 0, MaxSpans)
			}
		}
		if len(group) > 0 {
			next = append(next, newInternal(group))
		}
		nodes = next
	}

	t := &Tree{root: nodes[0]}
	t.cachedText.Store(&text)
	return t
}

// ApplyEdits applies edits in order and returns the successor tree,
// one version ahead. Edit positions address the intermediate state
// left by the preceding edits in the batch.
func (t *Tree) ApplyEdits(edits []Edit) *Tree {
	root := t.root
	for _, e := range edits {
		root = applyEditToNode(root, e)
		debugValidate(root)
	}
	return &Tree{root: root, version: t.version + 1}
}

// withVersion stamps a freshly built, unpublished tree with the given
// version. Used by bulk operations that rebuild from flattened text.
func (t *Tree) withVersion(v uint64) *Tree {
	t.version = v
	return t
}

// Version returns the tree's edit generation.
func (t *Tree) Version() uint64 { return t.version }

// ByteCount returns the total text length in bytes.
func (t *Tree) ByteCount() int { return t.root.sums.Bytes }

// LineCount returns the number of newlines. Line indices run from 0 to
// LineCount inclusive; the last line may be empty.
func (t *Tree) LineCount() uint32 { return t.root.sums.Lines }

// CharCount returns the number of UTF-8 characters.
func (t *Tree) CharCount() int { return t.root.sums.Chars }

// LenUTF16 returns the text length in UTF-16 code units.
func (t *Tree) LenUTF16() int { return t.root.sums.LenUTF16 }

// Bounds returns the combined extent of all embedded objects.
func (t *Tree) Bounds() Size { return t.root.sums.Bounds }

// MaxZ returns the highest stacking order among embedded objects.
func (t *Tree) MaxZ() int { return t.root.sums.MaxZ }

// Cursor returns a traversal cursor positioned at the start.
func (t *Tree) Cursor() *TreeCursor {
	return newCursor(t)
}

// Flatten returns the full text. The result is cached on the tree, so
// repeated calls after an edit pay the collection cost once.
func (t *Tree) Flatten() string {
	if p := t.cachedText.Load(); p != nil {
		return *p
	}
	var sb strings.Builder
	sb.Grow(t.ByteCount())
	collectText(t.root, &sb)
	s := sb.String()
	t.cachedText.Store(&s)
	return s
}

func collectText(n *Node, sb *strings.Builder) {
	if n.IsLeaf() {
		for _, sp := range n.spans {
			if sp.IsText() {
				sb.Write(sp.text)
			}
		}
		return
	}
	for _, c := range n.children {
		collectText(c, sb)
	}
}

// TextSlice returns the text in the byte range [start, end), clamped
// to the document.
func (t *Tree) TextSlice(start, end int) string {
	if end <= start {
		return ""
	}
	c := t.Cursor()
	c.SeekByte(start)
	return c.ReadText(end - start)
}

// LineToByte returns the byte offset where the given line starts, or
// false when the line index exceeds LineCount.
func (t *Tree) LineToByte(line uint32) (int, bool) {
	c := t.Cursor()
	return c.SeekLine(line)
}

// ByteToLine returns the line containing the given byte offset.
// Offsets past the end clamp to the last line.
func (t *Tree) ByteToLine(byte int) uint32 {
	c := t.Cursor()
	c.SeekByte(byte)
	return c.CurrentLine()
}

// FindNextNewline returns the position of the first newline at or
// after pos, or false when none remains.
func (t *Tree) FindNextNewline(pos int) (int, bool) {
	c := t.Cursor()
	c.SeekByte(pos)
	return c.FindByte('\n', true)
}

// FindPrevNewline returns the position of the last newline strictly
// before pos, or false when none precedes it.
func (t *Tree) FindPrevNewline(pos int) (int, bool) {
	c := t.Cursor()
	c.SeekByte(pos)
	return c.FindByte('\n', false)
}

// LineStartAt returns the byte offset of the start of the line
// containing pos.
func (t *Tree) LineStartAt(pos int) int {
	if p, ok := t.FindPrevNewline(pos); ok {
		return p + 1
	}
	return 0
}

// LineEndAt returns the byte offset of the newline ending the line
// containing pos, or the document end for the final line.
func (t *Tree) LineEndAt(pos int) int {
	if p, ok := t.FindNextNewline(pos); ok {
		return p
	}
	return t.ByteCount()
}

// LineAt returns the text of the line containing pos, without its
// trailing newline.
func (t *Tree) LineAt(pos int) string {
	return t.TextSlice(t.LineStartAt(pos), t.LineEndAt(pos))
}

// LineText returns the text of the given line including its trailing
// newline, or "" when the line does not exist.
func (t *Tree) LineText(line uint32) string {
	start, ok := t.LineToByte(line)
	if !ok {
		return ""
	}
	end, ok := t.LineToByte(line + 1)
	if !ok {
		end = t.ByteCount()
	}
	return t.TextSlice(start, end)
}

// LineTextTrimmed returns the text of the given line without its
// trailing newline.
func (t *Tree) LineTextTrimmed(line uint32) string {
	s := t.LineText(line)
	return strings.TrimSuffix(s, "\n")
}

// LineCharCount returns the character count of the given line,
// excluding the newline.
func (t *Tree) LineCharCount(line uint32) int {
	return utf8.RuneCountInString(t.LineTextTrimmed(line))
}

// DocPosToByte converts a (line, character column) position to a byte
// offset. Columns past the line's end clamp to the line's last
// character boundary; lines past the end clamp to the document end.
func (t *Tree) DocPosToByte(line uint32, column uint32) int {
	start, ok := t.LineToByte(line)
	if !ok {
		return t.ByteCount()
	}
	end, ok := t.LineToByte(line + 1)
	if !ok {
		end = t.ByteCount()
	}
	text := strings.TrimSuffix(t.TextSlice(start, end), "\n")

	byteOffset := 0
	chars := uint32(0)
	for _, r := range text {
		if chars >= column {
			break
		}
		byteOffset += utf8.RuneLen(r)
		chars++
	}
	return start + byteOffset
}

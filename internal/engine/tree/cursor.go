package tree

import (
	"bytes"
	"strings"
)

// cursorFrame records one level of the descent: the node, the absolute
// byte and line offset of its first content, precomputed offsets for
// each child, and the index of the next child to visit.
type cursorFrame struct {
	node       *Node
	byteOffset int
	lineOffset uint32
	childIndex int
	childOffs  []childOffset
}

type childOffset struct {
	byte int
	line uint32
}

func newCursorFrame(n *Node, byteOffset int, lineOffset uint32) cursorFrame {
	f := cursorFrame{node: n, byteOffset: byteOffset, lineOffset: lineOffset}
	if !n.IsLeaf() {
		f.childOffs = make([]childOffset, len(n.children))
		b, l := byteOffset, lineOffset
		for i, c := range n.children {
			f.childOffs[i] = childOffset{byte: b, line: l}
			b += c.sums.Bytes
			l += c.sums.Lines
		}
	}
	return f
}

// advanceToNextChild returns the next unvisited child with its
// absolute offsets, or false when the node is exhausted.
func (f *cursorFrame) advanceToNextChild() (*Node, int, uint32, bool) {
	if f.node.IsLeaf() || f.childIndex >= len(f.node.children) {
		return nil, 0, 0, false
	}
	i := f.childIndex
	f.childIndex++
	return f.node.children[i], f.childOffs[i].byte, f.childOffs[i].line, true
}

// SpanAt pairs a span with its absolute byte offset in the document.
type SpanAt struct {
	Span   Span
	Offset int
}

// TreeCursor walks a tree iteratively using an explicit frame stack,
// one frame per level of the current descent. The stack stays live
// across seeks so the cursor can stream leaf-to-leaf without
// re-descending from the root.
type TreeCursor struct {
	tree    *Tree
	stack   []cursorFrame
	current []SpanAt
	spanIdx int
	bytePos int
	linePos uint32
}

func newCursor(t *Tree) *TreeCursor {
	c := &TreeCursor{tree: t}
	c.Reset()
	return c
}

// Reset repositions the cursor at the document start.
func (c *TreeCursor) Reset() {
	c.stack = c.stack[:0]
	c.current = c.current[:0]
	c.spanIdx = 0
	c.bytePos = 0
	c.linePos = 0
	c.stack = append(c.stack, newCursorFrame(c.tree.root, 0, 0))
	c.descendToLeaf()
}

// setupLeaf loads a leaf's spans with their absolute offsets.
func (c *TreeCursor) setupLeaf(spans []Span, byteOffset int, lineOffset uint32) {
	c.current = c.current[:0]
	offset := byteOffset
	for _, sp := range spans {
		c.current = append(c.current, SpanAt{Span: sp, Offset: offset})
		offset += sp.ByteLen()
	}
	c.bytePos = byteOffset
	c.linePos = lineOffset
	c.spanIdx = 0
}

// descendToLeaf pushes frames down the leftmost unvisited path until a
// leaf is reached.
func (c *TreeCursor) descendToLeaf() bool {
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		if top.node.IsLeaf() {
			c.setupLeaf(top.node.spans, top.byteOffset, top.lineOffset)
			return true
		}
		child, byteOff, lineOff, ok := top.advanceToNextChild()
		if !ok {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		c.stack = append(c.stack, newCursorFrame(child, byteOff, lineOff))
	}
	return false
}

// advanceLeaf moves to the next leaf in document order: pop exhausted
// frames, step to the parent's next child, descend to its leftmost
// leaf.
func (c *TreeCursor) advanceLeaf() bool {
	if len(c.stack) > 0 && c.stack[len(c.stack)-1].node.IsLeaf() {
		c.stack = c.stack[:len(c.stack)-1]
	}
	return c.descendToLeaf()
}

// SeekByte positions the cursor at the given byte offset, maintaining
// the line position as it descends. Targets past the end clamp to the
// document end. Returns false only on a malformed tree.
func (c *TreeCursor) SeekByte(target int) bool {
	if target > c.tree.ByteCount() {
		target = c.tree.ByteCount()
	}

	c.stack = c.stack[:0]
	c.current = c.current[:0]
	c.spanIdx = 0
	c.bytePos = 0
	c.linePos = 0
	c.stack = append(c.stack, newCursorFrame(c.tree.root, 0, 0))

	if target == 0 {
		return c.descendToLeaf()
	}

	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]

		if top.node.IsLeaf() {
			c.setupLeaf(top.node.spans, top.byteOffset, top.lineOffset)

			currByte := top.byteOffset
			currLine := top.lineOffset
			for i, sp := range top.node.spans {
				size := sp.ByteLen()
				if target < currByte+size {
					c.bytePos = target
					c.spanIdx = i
					c.linePos = currLine + sp.linesTo(target-currByte)
					return true
				}
				currByte += size
				currLine += sp.LineCount()
			}
			if target == currByte {
				c.bytePos = target
				c.linePos = currLine
				if n := len(top.node.spans); n > 0 {
					c.spanIdx = n - 1
				}
				return true
			}
			return false
		}

		// Step the parent's child index forward so advanceLeaf continues
		// with the sibling after the one we descend into.
		descended := false
		for {
			child, byteOff, lineOff, ok := top.advanceToNextChild()
			if !ok {
				break
			}
			if byteOff+child.sums.Bytes >= target {
				c.stack = append(c.stack, newCursorFrame(child, byteOff, lineOff))
				descended = true
				break
			}
		}
		if !descended {
			return false
		}
	}
	return false
}

// SeekLine positions the cursor at the start of the given line and
// returns its byte offset. The descent uses cached line counts to
// reach the owning leaf, then scans span bytes for the exact newline.
// Returns false when the line index exceeds the line count.
func (c *TreeCursor) SeekLine(targetLine uint32) (int, bool) {
	if targetLine == 0 {
		c.Reset()
		return 0, true
	}
	if targetLine > c.tree.LineCount() {
		return 0, false
	}

	c.stack = c.stack[:0]
	c.current = c.current[:0]
	c.spanIdx = 0
	c.bytePos = 0
	c.linePos = 0
	c.stack = append(c.stack, newCursorFrame(c.tree.root, 0, 0))

	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]

		if top.node.IsLeaf() {
			c.setupLeaf(top.node.spans, top.byteOffset, top.lineOffset)

			currLine := top.lineOffset
			currByte := top.byteOffset
			for _, sp := range top.node.spans {
				if !sp.IsText() {
					continue
				}
				if currLine+sp.LineCount() >= targetLine {
					skip := targetLine - currLine
					if skip == 0 {
						c.seekWithin(currByte, currLine)
						return currByte, true
					}
					if pos := nthNewline(sp.text, skip); pos >= 0 {
						start := currByte + pos + 1
						c.seekWithin(start, targetLine)
						return start, true
					}
				}
				currLine += sp.LineCount()
				currByte += sp.ByteLen()
			}
			return 0, false
		}

		descended := false
		for {
			child, byteOff, lineOff, ok := top.advanceToNextChild()
			if !ok {
				break
			}
			if lineOff+child.sums.Lines >= targetLine {
				c.stack = append(c.stack, newCursorFrame(child, byteOff, lineOff))
				descended = true
				break
			}
		}
		if !descended {
			return 0, false
		}
	}
	return 0, false
}

// seekWithin updates position state to a byte offset known to fall in
// the already loaded leaf.
func (c *TreeCursor) seekWithin(target int, line uint32) {
	c.bytePos = target
	c.linePos = line
	for i, sp := range c.current {
		if target < sp.Offset+sp.Span.ByteLen() {
			c.spanIdx = i
			return
		}
	}
	if n := len(c.current); n > 0 {
		c.spanIdx = n - 1
	}
}

// nthNewline returns the index of the n'th newline (1-based) in b, or
// -1 when b holds fewer.
func nthNewline(b []byte, n uint32) int {
	base := 0
	for {
		i := bytes.IndexByte(b[base:], '\n')
		if i < 0 {
			return -1
		}
		n--
		if n == 0 {
			return base + i
		}
		base += i + 1
	}
}

// CurrentLine returns the line containing the cursor position.
func (c *TreeCursor) CurrentLine() uint32 { return c.linePos }

// BytePos returns the cursor's absolute byte position.
func (c *TreeCursor) BytePos() int { return c.bytePos }

// FindByte scans for target starting at the cursor position. Forward
// scans cover the position itself and everything after it; backward
// scans cover everything strictly before it. The scan crosses leaf
// boundaries in both directions. Returns the absolute position of the
// occurrence, or false.
func (c *TreeCursor) FindByte(target byte, forward bool) (int, bool) {
	if forward {
		return c.findByteForward(target)
	}
	return c.findByteBackward(target)
}

func (c *TreeCursor) findByteForward(target byte) (int, bool) {
	if c.spanIdx < len(c.current) {
		sp := c.current[c.spanIdx]
		if sp.Span.IsText() {
			from := c.bytePos - sp.Offset
			if from < 0 {
				from = 0
			}
			if i := bytes.IndexByte(sp.Span.text[from:], target); i >= 0 {
				return sp.Offset + from + i, true
			}
		}
	}
	for i := c.spanIdx + 1; i < len(c.current); i++ {
		sp := c.current[i]
		if !sp.Span.IsText() {
			continue
		}
		if j := bytes.IndexByte(sp.Span.text, target); j >= 0 {
			return sp.Offset + j, true
		}
	}
	for c.advanceLeaf() {
		for _, sp := range c.current {
			if !sp.Span.IsText() {
				continue
			}
			if j := bytes.IndexByte(sp.Span.text, target); j >= 0 {
				return sp.Offset + j, true
			}
		}
	}
	return 0, false
}

func (c *TreeCursor) findByteBackward(target byte) (int, bool) {
	limit := c.bytePos
	for {
		if len(c.current) == 0 {
			return 0, false
		}
		leafStart := c.current[0].Offset

		for i := len(c.current) - 1; i >= 0; i-- {
			sp := c.current[i]
			if !sp.Span.IsText() || sp.Offset >= limit {
				continue
			}
			end := sp.Span.ByteLen()
			if sp.Offset+end > limit {
				end = limit - sp.Offset
			}
			if j := bytes.LastIndexByte(sp.Span.text[:end], target); j >= 0 {
				return sp.Offset + j, true
			}
		}

		if leafStart == 0 {
			return 0, false
		}
		// Continue in the preceding leaf.
		c.SeekByte(leafStart - 1)
		limit = leafStart
	}
}

// ReadText returns up to n bytes of text starting at the cursor
// position, crossing leaves as needed. Embeds contribute nothing.
func (c *TreeCursor) ReadText(n int) string {
	var sb strings.Builder
	sb.Grow(n)

	remaining := n
	idx := c.spanIdx
	posInSpan := 0
	if idx < len(c.current) {
		posInSpan = c.bytePos - c.current[idx].Offset
		if posInSpan < 0 {
			posInSpan = 0
		}
	}

	for remaining > 0 {
		for remaining > 0 && idx < len(c.current) {
			sp := c.current[idx]
			if sp.Span.IsText() {
				avail := sp.Span.ByteLen() - posInSpan
				if avail > 0 {
					take := remaining
					if take > avail {
						take = avail
					}
					sb.Write(sp.Span.text[posInSpan : posInSpan+take])
					remaining -= take
				}
			}
			posInSpan = 0
			idx++
		}
		if remaining == 0 || !c.advanceLeaf() {
			break
		}
		idx = 0
	}
	return sb.String()
}

// CountChars counts characters by streaming every leaf once. Resets
// the cursor.
func (c *TreeCursor) CountChars() int {
	c.Reset()
	count := 0
	for {
		for _, sp := range c.current {
			count += sp.Span.charCount()
		}
		if !c.advanceLeaf() {
			break
		}
	}
	return count
}

// WalkRange streams each leaf overlapping the byte range [start, end)
// to fn. The callback receives the leaf's spans, the absolute offset
// of the leaf's first span, and the clamped overlap bounds. Spans are
// shared with the tree and must not be modified.
func (c *TreeCursor) WalkRange(start, end int, fn func(spans []SpanAt, lo, hi int)) {
	if end <= start {
		return
	}
	c.SeekByte(start)
	for {
		if len(c.current) == 0 {
			return
		}
		leafStart := c.current[0].Offset
		last := c.current[len(c.current)-1]
		leafEnd := last.Offset + last.Span.ByteLen()

		if leafStart >= end {
			return
		}
		if leafEnd > start {
			lo, hi := leafStart, leafEnd
			if lo < start {
				lo = start
			}
			if hi > end {
				hi = end
			}
			fn(c.current, lo, hi)
		}
		if !c.advanceLeaf() {
			return
		}
	}
}

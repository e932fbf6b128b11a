package tree

// MaxSpans bounds the fan-out of every node: a leaf holds at most
// MaxSpans spans and an internal node at most MaxSpans children.
const MaxSpans = 16

// Node is one node of the span tree. A node is either a leaf holding
// spans or an internal node holding children, never both. Nodes are
// immutable once built: edits construct new nodes along the changed
// path and share the rest by pointer.
type Node struct {
	spans    []Span
	children []*Node
	sums     Sums
}

// newLeaf builds a leaf node and computes its sums.
func newLeaf(spans []Span) *Node {
	return &Node{spans: spans, sums: computeLeafSums(spans)}
}

// newInternal builds an internal node and computes its sums. An empty
// child list collapses to an empty leaf.
func newInternal(children []*Node) *Node {
	if len(children) == 0 {
		return newLeaf(nil)
	}
	return &Node{children: children, sums: computeChildSums(children)}
}

// IsLeaf reports whether the node holds spans rather than children.
func (n *Node) IsLeaf() bool { return n.children == nil }

// Sums returns the node's cached aggregate.
func (n *Node) Sums() Sums { return n.sums }

// entryCount returns the span or child count, whichever applies.
func (n *Node) entryCount() int {
	if n.IsLeaf() {
		return len(n.spans)
	}
	return len(n.children)
}

func (n *Node) needsSplit() bool { return n.entryCount() > MaxSpans }

// splitIfNeeded wraps an overfull node in a new internal parent of two
// halves, growing the tree's height by one. Applied only at the root;
// interior overflow is resolved by the parent absorbing a new sibling.
func (n *Node) splitIfNeeded() *Node {
	if !n.needsSplit() {
		return n
	}
	left, right := n.bisect()
	return newInternal([]*Node{left, right})
}

// bisect splits the node's entries in half, producing two nodes of the
// same kind.
func (n *Node) bisect() (*Node, *Node) {
	if n.IsLeaf() {
		mid := len(n.spans) / 2
		return newLeaf(n.spans[:mid:mid]), newLeaf(n.spans[mid:])
	}
	mid := len(n.children) / 2
	return newInternal(n.children[:mid:mid]), newInternal(n.children[mid:])
}

// applyEditToNode applies one edit to the subtree rooted at n and
// returns the new root, splitting it if the edit overflowed it.
func applyEditToNode(n *Node, e Edit) *Node {
	res := n
	if e.End > e.Start {
		res = deleteFromNode(res, e.Start, e.End)
	}
	if !e.Content.isEmpty() {
		res = insertAtNode(res, e.Start, e.Content)
	}
	return res.splitIfNeeded()
}

// contentSpan materializes edit content as a span.
func contentSpan(c Content) Span {
	if c.Spatial != nil {
		return newSpatialSpan(c.Spatial)
	}
	return newTextSpan([]byte(c.Text))
}

// insertAtNode inserts content at byte position pos within n's subtree.
// The returned node may exceed the fan-out bound; the caller resolves
// overflow (parents split the child into siblings, the root wraps).
func insertAtNode(n *Node, pos int, content Content) *Node {
	if n.IsLeaf() {
		return insertAtLeaf(n, pos, content)
	}

	byteOffset := 0
	for i, child := range n.children {
		cb := child.sums.Bytes
		if byteOffset+cb >= pos {
			newChild := insertAtNode(child, pos-byteOffset, content)

			extra := 1
			if newChild.needsSplit() {
				extra = 2
			}
			children := make([]*Node, 0, len(n.children)+extra-1)
			children = append(children, n.children[:i]...)
			if newChild.needsSplit() {
				left, right := newChild.bisect()
				children = append(children, left, right)
			} else {
				children = append(children, newChild)
			}
			children = append(children, n.children[i+1:]...)
			return newInternal(children)
		}
		byteOffset += cb
	}

	// pos is past all content; append into the last child.
	last := len(n.children) - 1
	newChild := insertAtNode(n.children[last], n.children[last].sums.Bytes, content)
	children := make([]*Node, 0, len(n.children)+1)
	children = append(children, n.children[:last]...)
	if newChild.needsSplit() {
		left, right := newChild.bisect()
		children = append(children, left, right)
	} else {
		children = append(children, newChild)
	}
	return newInternal(children)
}

// insertAtLeaf builds a new leaf with content inserted at pos.
// A text insert landing at the end of a text span concatenates into it;
// a mid-span insert splits the span into prefix and suffix around the
// new content.
func insertAtLeaf(n *Node, pos int, content Content) *Node {
	spans := n.spans

	// Append onto a trailing text span.
	if content.Spatial == nil && len(spans) > 0 && pos == n.sums.Bytes {
		if last := spans[len(spans)-1]; last.IsText() {
			combined := make([]byte, 0, last.ByteLen()+len(content.Text))
			combined = append(combined, last.text...)
			combined = append(combined, content.Text...)
			out := make([]Span, len(spans))
			copy(out, spans)
			out[len(out)-1] = newTextSpan(combined)
			return newLeaf(out)
		}
	}

	newSpan := contentSpan(content)

	offset := 0
	for i, sp := range spans {
		size := sp.ByteLen()
		if offset <= pos && pos <= offset+size {
			splitPos := pos - offset

			if splitPos == 0 {
				return newLeaf(insertSpan(spans, i, newSpan))
			}

			if sp.IsText() && splitPos == size {
				if content.Spatial == nil {
					combined := make([]byte, 0, size+len(content.Text))
					combined = append(combined, sp.text...)
					combined = append(combined, content.Text...)
					out := make([]Span, len(spans))
					copy(out, spans)
					out[i] = newTextSpan(combined)
					return newLeaf(out)
				}
				return newLeaf(insertSpan(spans, i+1, newSpan))
			}

			if sp.IsText() {
				out := make([]Span, 0, len(spans)+2)
				out = append(out, spans[:i]...)
				out = append(out, sp.slice(0, splitPos), newSpan, sp.slice(splitPos, size))
				out = append(out, spans[i+1:]...)
				return newLeaf(out)
			}

			// Zero-width embed: insert after it.
			return newLeaf(insertSpan(spans, i+1, newSpan))
		}
		offset += size
	}

	out := make([]Span, 0, len(spans)+1)
	out = append(out, spans...)
	out = append(out, newSpan)
	return newLeaf(out)
}

// insertSpan returns a copy of spans with sp inserted at index i.
func insertSpan(spans []Span, i int, sp Span) []Span {
	out := make([]Span, 0, len(spans)+1)
	out = append(out, spans[:i]...)
	out = append(out, sp)
	out = append(out, spans[i:]...)
	return out
}

// deleteFromNode removes the byte range [start, end) from n's subtree.
// Fully covered spans and children are dropped, partially covered text
// spans are truncated, and zero-width embeds survive unless an interior
// deletion consumes their position. Children untouched by the range are
// shared with the old tree.
func deleteFromNode(n *Node, start, end int) *Node {
	if end <= start {
		return n
	}

	if n.IsLeaf() {
		out := make([]Span, 0, len(n.spans))
		offset := 0
		for _, sp := range n.spans {
			size := sp.ByteLen()
			spanEnd := offset + size

			switch {
			case spanEnd <= start || offset >= end:
				out = append(out, sp)
			case offset >= start && spanEnd <= end:
				// Fully covered, dropped. A zero-width embed sitting on
				// the range's start or end edge matched the case above
				// and survives; only interior embeds land here.
			default:
				lo := start - offset
				if lo < 0 {
					lo = 0
				}
				hi := end - offset
				if hi > size {
					hi = size
				}
				if lo > 0 {
					out = append(out, sp.slice(0, lo))
				}
				if hi < size {
					out = append(out, sp.slice(hi, size))
				}
			}
			offset = spanEnd
		}
		return newLeaf(out)
	}

	out := make([]*Node, 0, len(n.children))
	offset := 0
	for _, child := range n.children {
		cb := child.sums.Bytes
		childEnd := offset + cb

		switch {
		case childEnd <= start || offset >= end:
			out = append(out, child)
		case offset >= start && childEnd <= end:
			// Fully covered child is dropped.
		default:
			lo := start - offset
			if lo < 0 {
				lo = 0
			}
			hi := end - offset
			if hi > cb {
				hi = cb
			}
			out = append(out, deleteFromNode(child, lo, hi))
		}
		offset = childEnd
	}

	if len(out) < MaxSpans/2 && len(out) > 1 {
		out = mergeChildren(out)
	}
	return newInternal(out)
}

// mergeChildren coalesces adjacent same-kind children whose combined
// entry count fits the fan-out bound. Run when deletion leaves an
// internal node sparse.
func mergeChildren(children []*Node) []*Node {
	if len(children) >= MaxSpans/2 {
		return children
	}

	merged := make([]*Node, 0, len(children))
	for i := 0; i < len(children); {
		if i+1 < len(children) {
			a, b := children[i], children[i+1]
			if a.IsLeaf() == b.IsLeaf() && a.entryCount()+b.entryCount() <= MaxSpans {
				if a.IsLeaf() {
					spans := make([]Span, 0, len(a.spans)+len(b.spans))
					spans = append(spans, a.spans...)
					spans = append(spans, b.spans...)
					merged = append(merged, newLeaf(spans))
				} else {
					kids := make([]*Node, 0, len(a.children)+len(b.children))
					kids = append(kids, a.children...)
					kids = append(kids, b.children...)
					merged = append(merged, newInternal(kids))
				}
				i += 2
				continue
			}
		}
		merged = append(merged, children[i])
		i++
	}
	return merged
}

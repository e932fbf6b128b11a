package tree

import "fmt"

// Validate walks the whole tree and checks its structural invariants:
// fan-out bounds and cached sums that match a recount of each node's
// content. Intended for tests and debugging; no read or edit path
// calls it.
func (t *Tree) Validate() error {
	return validateNode(t.root)
}

func validateNode(n *Node) error {
	if n.entryCount() > MaxSpans {
		return fmt.Errorf("node entry count %d exceeds fan-out bound %d", n.entryCount(), MaxSpans)
	}

	if n.IsLeaf() {
		want := computeLeafSums(n.spans)
		if want != n.sums {
			return fmt.Errorf("leaf sums mismatch: cached %+v, recomputed %+v", n.sums, want)
		}
		return nil
	}

	want := computeChildSums(n.children)
	if want != n.sums {
		return fmt.Errorf("internal sums mismatch: cached %+v, recomputed %+v", n.sums, want)
	}
	for i, c := range n.children {
		if err := validateNode(c); err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
	}
	return nil
}

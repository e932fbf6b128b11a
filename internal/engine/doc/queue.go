package doc

import (
	"sync/atomic"

	"github.com/dshills/doctree/internal/engine/tree"
)

// editQueue is an unbounded lock-free multi-producer queue of pending
// edits (Michael–Scott, with a stub head node). Any goroutine may push
// without blocking; consumption happens from the flushing goroutine.
type editQueue struct {
	head atomic.Pointer[editNode]
	tail atomic.Pointer[editNode]
}

type editNode struct {
	next atomic.Pointer[editNode]
	edit tree.Edit
}

func newEditQueue() *editQueue {
	q := &editQueue{}
	stub := &editNode{}
	q.head.Store(stub)
	q.tail.Store(stub)
	return q
}

// push appends an edit. Lock-free; safe from any goroutine.
func (q *editQueue) push(e tree.Edit) {
	n := &editNode{edit: e}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if next != nil {
			// Tail is lagging; help it along.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			return
		}
	}
}

// pop removes the oldest edit, or reports false when the queue is
// empty.
func (q *editQueue) pop() (tree.Edit, bool) {
	for {
		head := q.head.Load()
		next := head.next.Load()
		if next == nil {
			return tree.Edit{}, false
		}
		if q.head.CompareAndSwap(head, next) {
			return next.edit, true
		}
	}
}

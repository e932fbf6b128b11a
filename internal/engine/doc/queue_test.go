package doc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/doctree/internal/engine/tree"
)

func TestQueueFIFO(t *testing.T) {
	q := newEditQueue()
	for i := 0; i < 10; i++ {
		q.push(tree.Insert(i, "x"))
	}
	for i := 0; i < 10; i++ {
		e, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, i, e.Start)
	}
	_, ok := q.pop()
	assert.False(t, ok)
}

func TestQueueEmptyPop(t *testing.T) {
	q := newEditQueue()
	_, ok := q.pop()
	assert.False(t, ok)

	// Drain then reuse.
	q.push(tree.Insert(0, "a"))
	q.pop()
	_, ok = q.pop()
	assert.False(t, ok)

	q.push(tree.Insert(1, "b"))
	e, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, 1, e.Start)
}

func TestQueueConcurrentPush(t *testing.T) {
	q := newEditQueue()

	const (
		goroutines = 8
		perG       = 1000
	)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				q.push(tree.Insert(g*perG+i, "x"))
			}
		}(g)
	}
	wg.Wait()

	// Every pushed edit comes out exactly once, and each producer's
	// edits stay in its push order.
	seen := make(map[int]bool, goroutines*perG)
	lastPerG := make([]int, goroutines)
	for g := range lastPerG {
		lastPerG[g] = -1
	}
	for {
		e, ok := q.pop()
		if !ok {
			break
		}
		require.False(t, seen[e.Start], "duplicate edit %d", e.Start)
		seen[e.Start] = true

		g := e.Start / perG
		i := e.Start % perG
		require.Greater(t, i, lastPerG[g], "producer %d order violated", g)
		lastPerG[g] = i
	}
	assert.Len(t, seen, goroutines*perG)
}

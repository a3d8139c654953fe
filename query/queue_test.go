package query

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := &Queue{}
	assert.True(t, q.Empty())
	assert.Nil(t, q.Front())

	q1 := &Query{Handle: 1}
	q2 := &Query{Handle: 2}
	q3 := &Query{Handle: 3}
	q.Push(q1)
	q.Push(q2)
	q.Push(q3)
	assert.False(t, q.Empty())

	for _, want := range []*Query{q1, q2, q3} {
		got := q.Front()
		require.Same(t, want, got)
		q.Pop()
	}
	assert.True(t, q.Empty())

	// Popping an empty queue is a no-op.
	q.Pop()
	assert.True(t, q.Empty())
}

func TestQueueConcurrentPush(t *testing.T) {
	q := &Queue{}

	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(h int) {
			defer wg.Done()
			q.Push(&Query{Handle: 1})
		}(i)
	}
	wg.Wait()

	count := 0
	for !q.Empty() {
		q.Pop()
		count++
	}
	assert.Equal(t, n, count)
}

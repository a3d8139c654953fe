package query

import "sync"

// Queue is an unbounded FIFO of pending queries. Each operation is
// individually atomic; there is no deduplication, priority, or
// backpressure.
type Queue struct {
	mu      sync.Mutex
	queries []*Query
}

// Push appends a query.
func (q *Queue) Push(query *Query) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queries = append(q.queries, query)
}

// Front returns the oldest query without removing it, or nil if empty.
func (q *Queue) Front() *Query {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queries) == 0 {
		return nil
	}
	return q.queries[0]
}

// Pop removes the oldest query. Popping an empty queue is a no-op.
func (q *Queue) Pop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queries) == 0 {
		return
	}
	q.queries[0] = nil
	q.queries = q.queries[1:]
}

// Empty reports whether the queue holds no queries.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queries) == 0
}

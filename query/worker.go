package query

import (
	"time"

	"github.com/cloudmirror/synccache/record"
	"github.com/cloudmirror/synccache/table"
)

// DefaultWakeInterval is the fallback recheck period when none is
// configured.
const DefaultWakeInterval = 100 * time.Millisecond

// ResultHandler receives query results on the worker goroutine, in the
// exact order the queries were popped. Implementations that need results
// on another goroutine must hand them off themselves.
type ResultHandler interface {
	OnChildFileCount(n int, code Code)
	OnChildFolderCount(n int, code Code)

	// OnBadQuery is delivered for queries of an unrecognized kind, with
	// CodeArgs; the store is never touched for them.
	OnBadQuery(kind Kind, code Code)
}

// Worker drains the query queue against the store on a dedicated
// goroutine. It has two states, running and stopped; the only stop
// mechanism is submitting the terminate sentinel.
type Worker struct {
	queue   *Queue
	table   *table.Table
	handler ResultHandler

	interval time.Duration
	wake     chan struct{}
	done     chan struct{}
}

// NewWorker creates a worker over the store. A non-positive interval
// falls back to DefaultWakeInterval.
func NewWorker(tbl *table.Table, handler ResultHandler, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultWakeInterval
	}
	return &Worker{
		queue:    &Queue{},
		table:    tbl,
		handler:  handler,
		interval: interval,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Submit enqueues a query and signals the worker. It never blocks on
// storage I/O; queries submitted after a terminate sentinel are not
// guaranteed to run.
func (w *Worker) Submit(kind Kind, h record.Handle) {
	w.queue.Push(&Query{Kind: kind, Handle: h})

	// Non-blocking wake; the ticker covers a missed signal.
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Terminate submits the stop sentinel. Every query submitted before it
// still executes and delivers its callback.
func (w *Worker) Terminate() {
	w.Submit(KindTerminate, record.Undef)
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.loop()
}

// Wait blocks until the worker has stopped.
func (w *Worker) Wait() {
	<-w.done
}

// loop waits for a wake signal or the periodic tick, then drains the
// queue. The tick guarantees the queue is rechecked even if a wake
// notification was missed.
func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.wake:
		case <-ticker.C:
		}

		if w.drain() {
			close(w.done)
			return
		}
	}
}

// drain executes and delivers every queued query in FIFO order. It
// reports whether a terminate sentinel was seen; the drain still runs to
// the end of the queue first, so nothing queued before the sentinel is
// dropped.
func (w *Worker) drain() bool {
	stop := false

	for !w.queue.Empty() {
		query := w.queue.Front()
		query.Execute(w.table)

		switch query.Kind {
		case KindCountChildFiles:
			w.handler.OnChildFileCount(query.Number, query.Result)

		case KindCountChildFolders:
			w.handler.OnChildFolderCount(query.Number, query.Result)

		case KindTerminate:
			stop = true

		default:
			w.handler.OnBadQuery(query.Kind, query.Result)
		}

		w.queue.Pop()
	}

	return stop
}

package query

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmirror/synccache/record"
)

// captureHandler records callback deliveries in arrival order.
type captureHandler struct {
	mu     sync.Mutex
	events []string
}

func (h *captureHandler) OnChildFileCount(n int, code Code) {
	h.record(fmt.Sprintf("files:%d:%s", n, code))
}

func (h *captureHandler) OnChildFolderCount(n int, code Code) {
	h.record(fmt.Sprintf("folders:%d:%s", n, code))
}

func (h *captureHandler) OnBadQuery(kind Kind, code Code) {
	h.record(fmt.Sprintf("bad:%d:%s", int(kind), code))
}

func (h *captureHandler) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *captureHandler) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func waitStopped(t *testing.T, w *Worker) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerDeliversInSubmissionOrder(t *testing.T) {
	parent := record.Handle(0x9000)
	tbl, _ := tempTable(t, parent)

	handler := &captureHandler{}
	w := NewWorker(tbl, handler, 5*time.Millisecond)
	w.Start()

	w.Submit(KindCountChildFiles, parent)
	w.Submit(KindCountChildFolders, parent)
	w.Submit(Kind(99), parent)
	w.Submit(KindCountChildFiles, parent)
	w.Terminate()

	waitStopped(t, w)

	assert.Equal(t, []string{
		"files:3:ok",
		"folders:2:ok",
		"bad:99:bad arguments",
		"files:3:ok",
	}, handler.snapshot())
}

func TestWorkerTerminateCompletesPendingQueries(t *testing.T) {
	parent := record.Handle(0x9000)
	tbl, _ := tempTable(t, parent)

	handler := &captureHandler{}
	// Long interval: delivery must come from the wake signal, not the tick.
	w := NewWorker(tbl, handler, time.Minute)
	w.Start()

	// Everything queued at or before the sentinel still executes and
	// delivers before the worker stops.
	for i := 0; i < 10; i++ {
		w.Submit(KindCountChildFiles, parent)
	}
	w.Terminate()

	waitStopped(t, w)
	require.Len(t, handler.snapshot(), 10)
	for _, e := range handler.snapshot() {
		assert.Equal(t, "files:3:ok", e)
	}
}

func TestWorkerWithoutStore(t *testing.T) {
	handler := &captureHandler{}
	w := NewWorker(nil, handler, 5*time.Millisecond)
	w.Start()

	w.Submit(KindCountChildFiles, 1)
	w.Terminate()

	waitStopped(t, w)
	assert.Equal(t, []string{"files:0:not found"}, handler.snapshot())
}

func TestWorkerTickerCoversMissedWake(t *testing.T) {
	parent := record.Handle(0x9000)
	tbl, _ := tempTable(t, parent)

	handler := &captureHandler{}
	w := NewWorker(tbl, handler, 5*time.Millisecond)

	// Queue filled before the worker even starts: only the periodic tick
	// or the buffered wake can pick these up.
	w.Submit(KindCountChildFolders, parent)
	w.Terminate()

	w.Start()
	waitStopped(t, w)
	assert.Equal(t, []string{"folders:2:ok"}, handler.snapshot())
}

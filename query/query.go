// Package query implements the asynchronous aggregate-query subsystem: a
// query value object, a thread-safe FIFO queue, and a background worker
// that drains the queue against the encrypted record store and delivers
// results through a callback interface.
//
// The submitting goroutine only ever touches the queue; all store access
// for aggregate reads happens on the worker goroutine, so the store needs
// no internal locking for this path.
package query

import (
	log "github.com/sirupsen/logrus"

	"github.com/cloudmirror/synccache/record"
	"github.com/cloudmirror/synccache/table"
)

// Kind identifies what a query asks for.
type Kind int

const (
	// KindCountChildFiles asks for the number of file children of a node.
	KindCountChildFiles Kind = iota

	// KindCountChildFolders asks for the number of folder children of a node.
	KindCountChildFolders

	// KindTerminate is the sentinel that stops the worker. Every query
	// queued at or before it still executes and delivers its result.
	KindTerminate
)

// Code is a query result code.
type Code int

const (
	// CodeOK means the query succeeded.
	CodeOK Code = iota

	// CodeNotFound means no backing store was configured.
	CodeNotFound

	// CodeRead means the store reported a failure on the read.
	CodeRead

	// CodeArgs means the query kind was not recognized.
	CodeArgs
)

// String returns a short name for the code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeNotFound:
		return "not found"
	case CodeRead:
		return "read error"
	case CodeArgs:
		return "bad arguments"
	}
	return "unknown"
}

// Query is one deferred aggregate request and its result.
type Query struct {
	Kind   Kind
	Handle record.Handle

	// Number and Result are filled in by Execute.
	Number int
	Result Code
}

// Execute runs the query against the store, setting Number and Result.
// A nil store fails immediately with CodeNotFound without touching
// storage; an unrecognized kind fails with CodeArgs and logs a warning.
func (q *Query) Execute(tbl *table.Table) {
	if tbl == nil {
		q.Result = CodeNotFound
		return
	}

	switch q.Kind {
	case KindCountChildFiles:
		q.Number, q.Result = mapCount(tbl.CountChildFiles(q.Handle))

	case KindCountChildFolders:
		q.Number, q.Result = mapCount(tbl.CountChildFolders(q.Handle))

	case KindTerminate:
		q.Result = CodeOK

	default:
		log.WithField("kind", int(q.Kind)).Warn("execution of unknown query kind")
		q.Result = CodeArgs
	}
}

func mapCount(n int, err error) (int, Code) {
	if err != nil {
		return 0, CodeRead
	}
	return n, CodeOK
}

// Package container holds the lock-guarded collections the broker and managers build on:
// an append-only log queue, an id set, a per-consumer offset table and a per-id cursor table.
package container

import (
	"sync"

	"github.com/mohitkumar/mqueue/errs"
)

// LogQueue is an append-only sequence. Indices are assigned in append order starting at 0.
type LogQueue[T any] struct {
	mu    sync.RWMutex
	items []T
}

func NewLogQueue[T any]() *LogQueue[T] {
	return &LogQueue[T]{}
}

// Append adds v to the tail and returns its index.
func (q *LogQueue[T]) Append(v T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, v)
	return len(q.items) - 1
}

func (q *LogQueue[T]) Get(index int) (T, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if index < 0 || index >= len(q.items) {
		var zero T
		return zero, errs.ErrOutOfRangef(index, len(q.items))
	}
	return q.items[index], nil
}

func (q *LogQueue[T]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

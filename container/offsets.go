package container

import "sync"

// OffsetTable maps consumer id to the index of the next entry that consumer will read.
type OffsetTable struct {
	mu      sync.Mutex
	offsets map[string]int
}

func NewOffsetTable() *OffsetTable {
	return &OffsetTable{offsets: make(map[string]int)}
}

// Add creates an entry for id at offset. An existing entry is left untouched; the return
// value reports whether the entry was created.
func (t *OffsetTable) Add(id string, offset int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.offsets[id]; ok {
		return false
	}
	t.offsets[id] = offset
	return true
}

func (t *OffsetTable) Contains(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.offsets[id]
	return ok
}

// Get returns the offset for id, 0 when unseen.
func (t *OffsetTable) Get(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.offsets[id]
}

// GetAndIncrement returns the current offset for id and advances it by one, but only when
// the offset is below threshold. Otherwise it returns false and nothing changes.
func (t *OffsetTable) GetAndIncrement(id string, threshold int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	off := t.offsets[id]
	if off >= threshold {
		return off, false
	}
	t.offsets[id] = off + 1
	return off, true
}

func (t *OffsetTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.offsets)
}

package container

import "sync"

// CursorTable holds one round-robin cursor per id.
type CursorTable struct {
	mu      sync.Mutex
	cursors map[string]int
}

func NewCursorTable() *CursorTable {
	return &CursorTable{cursors: make(map[string]int)}
}

// Next returns the cursor for id and advances it to (cursor+1) mod modulo.
// A modulo below 1 returns 0 without touching the table.
func (c *CursorTable) Next(id string, modulo int) int {
	if modulo < 1 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.cursors[id] % modulo
	c.cursors[id] = (cur + 1) % modulo
	return cur
}

func (c *CursorTable) Peek(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursors[id]
}

func (c *CursorTable) Set(id string, value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursors[id] = value
}

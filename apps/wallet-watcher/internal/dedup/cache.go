// Package dedup remembers recently seen transaction signatures.
package dedup

// Cache is a bounded set of signatures with FIFO eviction.
// Marking a signature that is already present does not refresh its position.
//
// Cache is not safe for concurrent use; the poller owns it and only touches it
// before fanning out work.
type Cache struct {
	max     int
	entries map[string]struct{}
	order   []string
}

// New returns a cache holding at most max signatures. max <= 0 remembers nothing.
func New(max int) *Cache {
	if max < 0 {
		max = 0
	}
	return &Cache{
		max:     max,
		entries: make(map[string]struct{}),
	}
}

// Contains reports whether id is currently remembered.
func (c *Cache) Contains(id string) bool {
	_, ok := c.entries[id]
	return ok
}

// MarkSeen remembers id, evicting the oldest insertions while over capacity.
func (c *Cache) MarkSeen(id string) {
	if _, ok := c.entries[id]; ok {
		return
	}
	c.entries[id] = struct{}{}
	c.order = append(c.order, id)

	for len(c.entries) > c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order[0] = ""
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len returns the number of remembered signatures.
func (c *Cache) Len() int {
	return len(c.entries)
}

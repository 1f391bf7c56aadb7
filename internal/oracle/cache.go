package oracle

import "sync"

// entry pairs a Record with its own mutex, so one pair's update never
// blocks a read of another — the "concurrent map with per-entry
// read/write locks" §5 requires for the oracle cache, adapted from the
// sharded-lock design the retrieval pack's price tracker uses for the
// same reason (many independent keys, short critical sections).
type entry struct {
	mu     sync.RWMutex
	record Record
}

// Cache is an in-process Feed backed by per-pair locked entries,
// intended to sit behind a transport/oraclefeed adapter that refreshes
// entries as replies arrive.
type Cache struct {
	mu      sync.Mutex // guards the entries map itself, not its values
	entries map[string]*entry
}

// NewCache builds an empty oracle Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

func key(base, quote string) string {
	return base + "/" + quote
}

// Lookup implements Feed.
func (c *Cache) Lookup(base, quote string) (Record, bool) {
	c.mu.Lock()
	e, ok := c.entries[key(base, quote)]
	c.mu.Unlock()
	if !ok {
		return Record{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.record, true
}

// Update stores the latest Record for (base, quote), creating the
// entry on first write.
func (c *Cache) Update(base, quote string, record Record) {
	c.mu.Lock()
	e, ok := c.entries[key(base, quote)]
	if !ok {
		e = &entry{}
		c.entries[key(base, quote)] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	e.record = record
	e.mu.Unlock()
}

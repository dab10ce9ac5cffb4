package netcdf

import (
	"sync"
)

// Cache is a thread-safe LRU over opened grids, keyed by (path, variable).
// Sources share one cache so a climatology consulted by several extraction
// runs is parsed once.
type Cache struct {
	maxEntries int
	onLookup   func(hit bool) // optional observability hook

	mu      sync.Mutex
	entries map[string]*cacheEntry
	head    *cacheEntry // most recently used
	tail    *cacheEntry // least recently used
}

type cacheEntry struct {
	key   string
	value *Grid
	prev  *cacheEntry
	next  *cacheEntry
}

// NewCache creates a grid cache holding at most maxEntries grids. onLookup,
// when non-nil, is called once per Open with the lookup outcome.
func NewCache(maxEntries int, onLookup func(hit bool)) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		onLookup:   onLookup,
		entries:    make(map[string]*cacheEntry),
	}
}

// Open returns the cached grid for (path, variable), loading and caching it
// on a miss. Failed loads are not cached, so a file that appears later can
// still be picked up.
func (c *Cache) Open(path, variable string) (*Grid, error) {
	key := path + "|" + variable
	if g, ok := c.get(key); ok {
		if c.onLookup != nil {
			c.onLookup(true)
		}
		return g, nil
	}
	if c.onLookup != nil {
		c.onLookup(false)
	}

	g, err := OpenGrid(path, variable)
	if err != nil {
		return nil, err
	}
	c.put(key, g)
	return g, nil
}

// Len returns the number of cached grids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) get(key string) (*Grid, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *Cache) put(key string, value *Grid) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &cacheEntry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *Cache) moveToFront(e *cacheEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *Cache) addToFront(e *cacheEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) remove(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Cache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}

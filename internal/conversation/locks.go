package conversation

import "sync"

// ContactLocks serializes work per contact phone. The engine holds the lock
// for the whole turn; the admin takeover path grabs the same lock so a
// broker claiming a conversation never interleaves with an in-flight turn.
type ContactLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewContactLocks creates an empty lock table.
func NewContactLocks() *ContactLocks {
	return &ContactLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (c *ContactLocks) Lock(key string) func() {
	c.mu.Lock()
	if c.locks == nil {
		c.locks = make(map[string]*sync.Mutex)
	}
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

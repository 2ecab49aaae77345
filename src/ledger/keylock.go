package ledger

import (
	"sync"
)

// KeyLock serializes all mutating operations per survey number.
// Operations on different surveys proceed in parallel.
type KeyLock struct {
	mtx   sync.Mutex
	locks map[string]*keyLockEntry
}

type keyLockEntry struct {
	mtx  sync.Mutex
	refs int
}

func NewKeyLock() *KeyLock {
	return &KeyLock{
		locks: make(map[string]*keyLockEntry),
	}
}

// Lock blocks until the key is free and returns the unlock function
func (self *KeyLock) Lock(key string) (unlock func()) {
	self.mtx.Lock()
	entry, ok := self.locks[key]
	if !ok {
		entry = new(keyLockEntry)
		self.locks[key] = entry
	}
	entry.refs += 1
	self.mtx.Unlock()

	entry.mtx.Lock()

	return func() {
		entry.mtx.Unlock()

		self.mtx.Lock()
		entry.refs -= 1
		if entry.refs == 0 {
			delete(self.locks, key)
		}
		self.mtx.Unlock()
	}
}

package trainstatus

import "sync"

// entityLocks hands out one mutex per train id. Entries are reference counted and removed once
// nobody holds or waits on them.
type entityLocks struct {
	mutex sync.Mutex
	locks map[string]*entityLock
}

type entityLock struct {
	sync.Mutex
	references int
}

func newEntityLocks() *entityLocks {
	return &entityLocks{locks: map[string]*entityLock{}}
}

// Lock blocks until id is held and returns the matching unlock function
func (l *entityLocks) Lock(id string) func() {
	l.mutex.Lock()
	lock, exists := l.locks[id]
	if !exists {
		lock = &entityLock{}
		l.locks[id] = lock
	}
	lock.references++
	l.mutex.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		l.mutex.Lock()
		lock.references--
		if lock.references == 0 {
			delete(l.locks, id)
		}
		l.mutex.Unlock()
	}
}

func (l *entityLocks) size() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return len(l.locks)
}

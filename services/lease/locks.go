package lease

import "sync"

// moderatorLocks serializes lease transitions per moderator so that two
// concurrent acquisitions cannot both observe "no live lease".
type moderatorLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newModeratorLocks() *moderatorLocks {
	return &moderatorLocks{locks: make(map[string]*sync.Mutex)}
}

func (m *moderatorLocks) lock(moderatorID string) func() {
	m.mu.Lock()
	l, ok := m.locks[moderatorID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[moderatorID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

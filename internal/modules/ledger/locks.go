package ledger

import "sync"

// accountLocks serializes trade application per account while letting
// trades on different accounts proceed in parallel. Locks are created on
// first use and kept for the account's lifetime (accounts are never
// deleted, so the registry only grows with the account set).
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *accountLocks) forAccount(accountID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[accountID] = lock
	}
	return lock
}

package availability

import (
	"sync"

	domainlistings "wanderlust/internal/domain/listings"
)

// listingLocks hands out one mutex per listing and forgets it once unused.
type listingLocks struct {
	mu    sync.Mutex
	locks map[domainlistings.ListingID]*listingLock
}

type listingLock struct {
	sync.Mutex
	refs int
}

func newListingLocks() *listingLocks {
	return &listingLocks{locks: make(map[domainlistings.ListingID]*listingLock)}
}

// lock blocks until the listing is free and returns its unlock func.
func (l *listingLocks) lock(id domainlistings.ListingID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &listingLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *listingLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

package clipboard

import "sync"

// Lease is the exclusive logical lock a pipeline run holds on the clipboard
// from its snapshot until its replacement completes. It never blocks: a
// second holder is refused.
type Lease struct {
	mu   sync.Mutex
	held bool
	by   string
}

// DefaultLease guards the process-wide system clipboard.
var DefaultLease = &Lease{}

// TryAcquire takes the lease for owner. The returned release func is
// idempotent.
func (l *Lease) TryAcquire(owner string) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return func() {}, false
	}
	l.held = true
	l.by = owner
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.by = ""
			l.mu.Unlock()
		})
	}, true
}

// Holder returns the current owner, or "" when free.
func (l *Lease) Holder() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.by
}

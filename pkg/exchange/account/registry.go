package account

import (
	"net/netip"
	"sync"
)

// Verdict classifies an account during the eviction pass.
type Verdict int

const (
	Keep Verdict = iota
	Win          // remove and deliver the reward payload
	Evict        // remove and deliver a disconnect notice
)

// Registry is the one piece of state shared between the receive path and
// the processing path. Every access is scoped: acquire, mutate minimally,
// release. Callers must never perform network sends from inside a callback.
type Registry struct {
	mu       sync.Mutex
	accounts map[netip.AddrPort]*Account
}

func NewRegistry() *Registry {
	return &Registry{accounts: make(map[netip.AddrPort]*Account)}
}

// Ensure creates the account on first contact and reports its current
// market-maker flag. Called by the receive path for every datagram.
func (r *Registry) Ensure(addr netip.AddrPort) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[addr]
	if !ok {
		acc = New(addr)
		r.accounts[addr] = acc
	}
	return acc.MarketMaker
}

// Remove deletes an account. Used for client-initiated disconnects.
func (r *Registry) Remove(addr netip.AddrPort) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[addr]; !ok {
		return false
	}
	delete(r.accounts, addr)
	return true
}

// Has reports whether an account exists. Used by book compaction to reap
// entries whose owner is gone.
func (r *Registry) Has(addr netip.AddrPort) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.accounts[addr]
	return ok
}

// Apply runs fn on the account under the registry lock. Returns false if
// the account does not exist; fn is not called in that case.
func (r *Registry) Apply(addr netip.AddrPort, fn func(*Account)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[addr]
	if !ok {
		return false
	}
	fn(acc)
	return true
}

// Snapshot returns a copy of the account for lock-free reads.
func (r *Registry) Snapshot(addr netip.AddrPort) (Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[addr]
	if !ok {
		return Account{}, false
	}
	return *acc, true
}

// Reap applies judge to every account and removes winners and evictees,
// returning copies so notices can be sent after the lock is released.
// Win takes precedence over Evict; judge must honor that ordering.
func (r *Registry) Reap(judge func(*Account) Verdict) (wins, evicted []Account) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for addr, acc := range r.accounts {
		switch judge(acc) {
		case Win:
			wins = append(wins, *acc)
			delete(r.accounts, addr)
		case Evict:
			evicted = append(evicted, *acc)
			delete(r.accounts, addr)
		}
	}
	return wins, evicted
}

// AdvanceCycle increments every surviving account's presence counter and
// returns copies for the snapshot broadcast, performed outside the lock.
func (r *Registry) AdvanceCycle() []Account {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		acc.CyclesPresent++
		out = append(out, *acc)
	}
	return out
}

// List returns copies of all live accounts, for read-only consumers.
func (r *Registry) List() []Account {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		out = append(out, *acc)
	}
	return out
}

// Count returns the number of live accounts.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

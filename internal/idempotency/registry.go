// Package idempotency tracks client-supplied idempotency keys so a
// resubmitted order request is answered with the originally created order
// instead of decrementing stock a second time.
package idempotency

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Registry maps idempotency keys to order IDs. A key is claimed with
// Reserve before the order is placed, so concurrent duplicates agree on a
// single winner: the first claimant owns the key and places the order, the
// rest wait on its reservation for the result. A bloom filter sits in front
// of the exact map so the common never-seen key skips the map lookup; a
// false positive only costs that lookup, never a wrong answer.
type Registry struct {
	mu      sync.Mutex
	filter  *bloom.BloomFilter
	entries map[string]*entry
}

type entry struct {
	done    chan struct{}
	orderID string // written by the owner before done is closed
}

// NewRegistry sizes the bloom filter for the expected number of keys and
// target false-positive rate.
func NewRegistry(expectedKeys uint, falsePositiveRate float64) *Registry {
	return &Registry{
		filter:  bloom.NewWithEstimates(expectedKeys, falsePositiveRate),
		entries: make(map[string]*entry),
	}
}

// Reservation is one caller's claim on a key. The owner must end it with
// exactly one of Fulfill or Release; non-owners observe the outcome with
// Await.
type Reservation struct {
	registry *Registry
	key      string
	entry    *entry
}

// Reserve claims key. The second return value is true when the caller is
// the first claimant and now owns the key; false means another claim is
// already in place and the reservation can only be Awaited.
func (r *Registry) Reserve(key string) (*Reservation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filter.TestString(key) {
		if e, ok := r.entries[key]; ok {
			return &Reservation{registry: r, key: key, entry: e}, false
		}
	}
	e := &entry{done: make(chan struct{})}
	r.filter.AddString(key)
	r.entries[key] = e
	return &Reservation{registry: r, key: key, entry: e}, true
}

// Fulfill records the owner's order ID and wakes every waiter.
func (res *Reservation) Fulfill(orderID string) {
	res.entry.orderID = orderID
	close(res.entry.done)
}

// Release abandons the claim after a failed placement. Waiters wake with
// ok=false and the key is open to a new claim.
func (res *Reservation) Release() {
	res.registry.mu.Lock()
	delete(res.registry.entries, res.key)
	res.registry.mu.Unlock()
	close(res.entry.done)
}

// Await blocks until the claim is fulfilled or released. ok is false when
// the owner released the claim, in which case the caller should contend
// for the key again.
func (res *Reservation) Await(ctx context.Context) (orderID string, ok bool, err error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-res.entry.done:
		return res.entry.orderID, res.entry.orderID != "", nil
	}
}

// Lookup returns the order ID recorded under key. Keys with a placement
// still in flight report as absent.
func (r *Registry) Lookup(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.filter.TestString(key) {
		return "", false
	}
	e, ok := r.entries[key]
	if !ok {
		return "", false
	}
	select {
	case <-e.done:
		return e.orderID, e.orderID != ""
	default:
		return "", false
	}
}

// Len returns the number of claimed keys, fulfilled or in flight.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

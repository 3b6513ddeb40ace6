package resilience

import (
	"context"
	"fmt"
)

// BulkheadFullError is returned when a bulkhead's slot pool is saturated.
type BulkheadFullError struct {
	Key      string
	Capacity int
}

func (e *BulkheadFullError) Error() string {
	return fmt.Sprintf("bulkhead %q is full (capacity %d)", e.Key, e.Capacity)
}

// Bulkhead is a bounded slot pool isolating the blast radius of one named
// resource (e.g. "database", "network") from the rest of the system.
// Slots are acquired non-blockingly: a caller either gets a slot or is
// rejected immediately, never queued.
type Bulkhead struct {
	key      string
	slots    chan struct{}
	capacity int
}

func NewBulkhead(key string, capacity int) *Bulkhead {
	return &Bulkhead{
		key:      key,
		slots:    make(chan struct{}, capacity),
		capacity: capacity,
	}
}

// Execute acquires a slot, runs fn, and unconditionally releases the slot
// on return (success or failure).
func (b *Bulkhead) Execute(ctx context.Context, fn func(context.Context) error) error {
	select {
	case b.slots <- struct{}{}:
	default:
		return &BulkheadFullError{Key: b.key, Capacity: b.capacity}
	}
	defer func() { <-b.slots }()

	return fn(ctx)
}

// InUse reports how many slots are currently held.
func (b *Bulkhead) InUse() int {
	return len(b.slots)
}

// Capacity returns the bulkhead's total slot count.
func (b *Bulkhead) Capacity() int {
	return b.capacity
}

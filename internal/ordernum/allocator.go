package ordernum

import (
	"context"
	"time"

	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
)

// Display numbers cycle within this window. Kitchens call orders by these,
// so they stay small and human.
const (
	MinNumber = 1
	MaxNumber = 99
)

// Next picks the display number for a new order. todaysMax is the highest
// number handed out today (0 if none); active holds the numbers currently
// owned by orders still on the floor. Preference is sequential; on wrap or
// collision the lowest free number wins. With all 99 numbers held there is
// nothing to hand out.
func Next(todaysMax int, active map[int]bool) (int, error) {
	candidate := todaysMax + 1
	if candidate < MinNumber || candidate > MaxNumber {
		candidate = MinNumber
	}
	if !active[candidate] {
		return candidate, nil
	}
	for n := MinNumber; n <= MaxNumber; n++ {
		if !active[n] {
			return n, nil
		}
	}
	return 0, pkgerrors.New(pkgerrors.CodeCapacity, "all order numbers are in use")
}

// Allocator hands out order numbers using a transaction-bound repository.
// Callers must run it inside the order-creation transaction so the active
// set stays locked until the new order commits.
type Allocator struct {
	repo Repository
}

// NewAllocator builds an allocator over the given repository.
func NewAllocator(repo Repository) *Allocator {
	return &Allocator{repo: repo}
}

// Allocate reads today's usage and the locked active set, then picks the
// next number.
func (a *Allocator) Allocate(ctx context.Context, startOfDay time.Time) (int, error) {
	todaysMax, err := a.repo.MaxNumberSince(ctx, startOfDay)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load today's max order number")
	}
	active, err := a.repo.ActiveNumbers(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active order numbers")
	}
	return Next(todaysMax, active)
}

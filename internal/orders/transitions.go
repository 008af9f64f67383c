package orders

import (
	"fmt"

	"github.com/emberlane/pos-backend/pkg/enums"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
)

// allowedTransitions is the closed order lifecycle. Anything not listed is
// rejected; terminal refund states are reachable only through payments.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPrep:              {enums.OrderStatusReady, enums.OrderStatusVoid},
	enums.OrderStatusReady:             {enums.OrderStatusDone},
	enums.OrderStatusDone:              {enums.OrderStatusRefunded, enums.OrderStatusPartiallyRefunded},
	enums.OrderStatusPartiallyRefunded: {enums.OrderStatusRefunded},
}

// CanTransition reports whether the lifecycle permits from→to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a state conflict error when from→to is not
// permitted.
func CheckTransition(from, to enums.OrderStatus) error {
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition order from %s to %s", from, to))
	}
	return nil
}

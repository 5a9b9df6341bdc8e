// README: Replays offline-captured confirmations against the order service
// once connectivity is back.
package offline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"deliverycity/internal/modules/order"
	"deliverycity/internal/types"
)

// Verifier is the online half of confirmation. order.Service satisfies it.
type Verifier interface {
	VerifyPickup(ctx context.Context, orderID types.ID, code string) error
	VerifyDelivery(ctx context.Context, orderID types.ID, code string) error
}

// Reconciler sweeps the confirmation queue front-to-back. One sweep runs at
// a time; overlapping triggers (reconnect event plus periodic timer) are
// dropped rather than queued.
type Reconciler struct {
	store    *Store
	verifier Verifier
	log      *slog.Logger

	mu sync.Mutex
}

func NewReconciler(store *Store, verifier Verifier, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{store: store, verifier: verifier, log: log}
}

// Replay pushes every queued confirmation to the server, in capture order.
// A failed entry does not stop the sweep. The queue is cleared only when
// every entry is settled: either applied now, or reported already applied by
// an earlier sweep. Any other failure, a code mismatch included, leaves the
// whole queue intact for the next sweep.
//
// Returns the number of confirmations applied in this sweep.
func (r *Reconciler) Replay(ctx context.Context) int {
	if !r.mu.TryLock() {
		return 0
	}
	defer r.mu.Unlock()

	queue := r.store.Drain()
	if len(queue) == 0 {
		return 0
	}

	applied := 0
	settled := true
	for _, c := range queue {
		err := r.verify(ctx, c)
		switch {
		case err == nil:
			applied++
		case isAlreadyApplied(err):
			// A replay of an already-applied confirmation lands here: the
			// order has moved past the precondition state, so the verify
			// reports an invalid transition. Nothing left to do.
			r.log.Info("queued confirmation already settled",
				"order_id", c.OrderID, "kind", c.Kind, "reason", err)
		default:
			r.log.Warn("queued confirmation replay failed, will retry",
				"order_id", c.OrderID, "kind", c.Kind, "error", err)
			settled = false
		}
	}

	if settled {
		r.store.ClearQueue()
	}
	return applied
}

func (r *Reconciler) verify(ctx context.Context, c Confirmation) error {
	switch c.Kind {
	case KindPickup:
		return r.verifier.VerifyPickup(ctx, c.OrderID, c.Code)
	case KindDelivery:
		return r.verifier.VerifyDelivery(ctx, c.OrderID, c.Code)
	default:
		return order.ErrBadRequest
	}
}

// isAlreadyApplied recognizes the idempotent replay case: the order has
// moved past the precondition state because a previous attempt of this same
// confirmation went through. Everything else, code mismatches included,
// stays queued so a later pass (or support) can resolve it.
func isAlreadyApplied(err error) bool {
	return errors.Is(err, order.ErrInvalidTransition)
}

// README: Durable confirmation entry point used by the courier handlers.
package offline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"deliverycity/internal/modules/order"
	"deliverycity/internal/types"
)

// Result says how a confirmation attempt ended.
type Result string

const (
	// ResultApplied means the server accepted the confirmation.
	ResultApplied Result = "applied"
	// ResultQueued means the server was unreachable and the confirmation
	// waits in the offline queue for the next replay sweep.
	ResultQueued Result = "queued"
)

// DurableConfirmer tries the online verify first and falls back to the
// offline queue when the backend is unreachable. Definitive rejections
// (wrong code, wrong state) are returned to the caller, never queued.
type DurableConfirmer struct {
	store    *Store
	verifier Verifier
	log      *slog.Logger
}

func NewDurableConfirmer(store *Store, verifier Verifier, log *slog.Logger) *DurableConfirmer {
	if log == nil {
		log = slog.Default()
	}
	return &DurableConfirmer{store: store, verifier: verifier, log: log}
}

// ConfirmPickup verifies the pickup code, queueing it on backend outage.
func (d *DurableConfirmer) ConfirmPickup(ctx context.Context, courierID, orderID types.ID, code string) (Result, error) {
	return d.confirm(ctx, Confirmation{
		CourierID:  courierID,
		OrderID:    orderID,
		Code:       code,
		Kind:       KindPickup,
		CapturedAt: time.Now(),
	})
}

// ConfirmDelivery verifies the delivery code, queueing it on backend outage.
func (d *DurableConfirmer) ConfirmDelivery(ctx context.Context, courierID, orderID types.ID, code string) (Result, error) {
	return d.confirm(ctx, Confirmation{
		CourierID:  courierID,
		OrderID:    orderID,
		Code:       code,
		Kind:       KindDelivery,
		CapturedAt: time.Now(),
	})
}

func (d *DurableConfirmer) confirm(ctx context.Context, c Confirmation) (Result, error) {
	var err error
	switch c.Kind {
	case KindPickup:
		err = d.verifier.VerifyPickup(ctx, c.OrderID, c.Code)
	case KindDelivery:
		err = d.verifier.VerifyDelivery(ctx, c.OrderID, c.Code)
	default:
		return "", order.ErrBadRequest
	}

	if err == nil {
		return ResultApplied, nil
	}
	if isRejection(err) {
		return "", err
	}

	// Anything else is treated as unreachable backend: keep the code.
	d.log.Warn("backend unreachable, queueing confirmation",
		"order_id", c.OrderID, "kind", c.Kind, "error", err)
	d.store.Enqueue(c)
	return ResultQueued, nil
}

// isRejection reports a domain answer from a reachable backend. The courier
// is standing at the door with the customer, so a wrong code or wrong state
// goes straight back to them instead of into the queue.
func isRejection(err error) bool {
	return errors.Is(err, order.ErrInvalidTransition) ||
		errors.Is(err, order.ErrCodeMismatch) ||
		errors.Is(err, order.ErrNotFound) ||
		errors.Is(err, order.ErrBadRequest)
}

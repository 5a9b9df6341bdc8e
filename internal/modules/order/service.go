// README: Order service implements the lifecycle state machine, code
// verification, and checkout fee computation.
package order

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"deliverycity/internal/config"
	"deliverycity/internal/types"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrBadRequest         = errors.New("bad request")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrCodeMismatch       = errors.New("verification code mismatch")
	ErrAssignmentConflict = errors.New("order no longer available")
	ErrAlreadyRated       = errors.New("order already rated")
)

// Filter narrows List queries.
type Filter struct {
	Statuses     []Status
	CustomerID   types.ID
	RestaurantID types.ID
	CourierID    types.ID
	Unassigned   bool
}

// Repository is the canonical order collection. Conditional operations
// return false when the precondition no longer held at write time; that
// re-check at the authoritative write is what makes assignment race-safe.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	List(ctx context.Context, f Filter) ([]*Order, error)
	SetStatus(ctx context.Context, id types.ID, from, to Status) (bool, error)
	AssignCourier(ctx context.Context, id, courierID types.ID, pickupCode, deliveryCode string) (bool, error)
	AddRejectedCourier(ctx context.Context, id, courierID types.ID) error
	SetRating(ctx context.Context, id types.ID, r Rating) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
}

// Catalog supplies price snapshots at checkout.
type Catalog interface {
	Snapshot(ctx context.Context, restaurantID types.ID, lines []CreateItem) (restaurantName string, items []Item, subtotal types.Money, err error)
}

// ActiveOrderSlot is the per-courier local active-order cache. Both methods
// are best-effort and must not fail the lifecycle operation.
type ActiveOrderSlot interface {
	SaveActiveOrder(courierID types.ID, o *Order)
	ClearActiveOrder(courierID types.ID)
}

// CourierLedger receives the side effects of a completed delivery and of
// rating submission.
type CourierLedger interface {
	AdjustBalance(ctx context.Context, courierID types.ID, amount types.Money) error
	MarkCompletedOrder(ctx context.Context, courierID types.ID, at time.Time) error
	ApplyRating(ctx context.Context, courierID types.ID, stars int) error
}

// RestaurantRatings receives the store half of a rating.
type RestaurantRatings interface {
	ApplyRating(ctx context.Context, restaurantID types.ID, stars int) error
}

type Service struct {
	repo        Repository
	catalog     Catalog
	slot        ActiveOrderSlot
	couriers    CourierLedger
	restaurants RestaurantRatings
	checkout    config.CheckoutConfig
	log         *slog.Logger
}

func NewService(repo Repository, catalog Catalog, slot ActiveOrderSlot, couriers CourierLedger, restaurants RestaurantRatings, checkout config.CheckoutConfig, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:        repo,
		catalog:     catalog,
		slot:        slot,
		couriers:    couriers,
		restaurants: restaurants,
		checkout:    checkout,
		log:         log,
	}
}

type CreateItem struct {
	ProductID types.ID
	Quantity  int
}

type CreateCommand struct {
	CustomerID     types.ID
	CustomerName   string
	RestaurantID   types.ID
	Items          []CreateItem
	PaymentMethod  PaymentMethod
	Address        string
	Coords         *types.Point
	ChangeForCents *int64
}

// Create runs checkout: snapshots menu prices, computes the fee breakdown,
// and persists a PENDING order. Total = Subtotal + DeliveryFee, fixed here
// and never recomputed.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.CustomerID == "" || cmd.RestaurantID == "" || len(cmd.Items) == 0 || cmd.Address == "" {
		return nil, ErrBadRequest
	}
	for _, it := range cmd.Items {
		if it.Quantity <= 0 {
			return nil, ErrBadRequest
		}
	}

	name, items, subtotal, err := s.catalog.Snapshot(ctx, cmd.RestaurantID, cmd.Items)
	if err != nil {
		return nil, err
	}

	deliveryFee := types.BRL(s.checkout.DeliveryFeeCents)
	platformFee := types.BRL(int64(math.Round(float64(subtotal.Amount) * s.checkout.CommissionRate)))

	now := time.Now()
	o := &Order{
		ID:              newOrderID(now),
		RestaurantID:    cmd.RestaurantID,
		RestaurantName:  name,
		CustomerID:      cmd.CustomerID,
		CustomerName:    cmd.CustomerName,
		CustomerAddress: cmd.Address,
		CustomerCoords:  cmd.Coords,
		Items:           items,
		Subtotal:        subtotal,
		DeliveryFee:     deliveryFee,
		PlatformFee:     platformFee,
		CourierEarnings: deliveryFee,
		Total:           subtotal.Add(deliveryFee),
		PaymentMethod:   cmd.PaymentMethod,
		Status:          StatusPending,
		CreatedAt:       now,
	}
	if cmd.ChangeForCents != nil {
		m := types.BRL(*cmd.ChangeForCents)
		o.ChangeFor = &m
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	_ = s.repo.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  "customer",
		ActorID:    &cmd.CustomerID,
		CreatedAt:  now,
	})
	return o, nil
}

// Accept is the restaurant acknowledging the order (PENDING -> PREPARING).
func (s *Service) Accept(ctx context.Context, orderID types.ID) error {
	return s.transition(ctx, orderID, StatusPending, StatusPreparing, "restaurant", nil)
}

// MarkReady signals preparation finished (PREPARING -> READY).
func (s *Service) MarkReady(ctx context.Context, orderID types.ID) error {
	return s.transition(ctx, orderID, StatusPreparing, StatusReady, "restaurant", nil)
}

// SetStatus is the generic transition path. It refuses targets that carry a
// dedicated verified operation: OUT_FOR_DELIVERY and DELIVERED require the
// pickup/delivery codes, CANCELLED goes through Cancel.
func (s *Service) SetStatus(ctx context.Context, orderID types.ID, to Status, actorType string) error {
	switch to {
	case StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusAssigned:
		return ErrInvalidTransition
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	return s.transition(ctx, orderID, o.Status, to, actorType, nil)
}

// Cancel moves any non-terminal order to CANCELLED. If a courier was
// already assigned, their active-order slot is released.
func (s *Service) Cancel(ctx context.Context, orderID types.ID, actorType string) error {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, orderID, o.Status, StatusCancelled, actorType, nil); err != nil {
		return err
	}
	if s.slot != nil && o.CourierID != nil {
		s.slot.ClearActiveOrder(*o.CourierID)
	}
	return nil
}

// AssignCourier claims a READY, unassigned order for the courier. The
// precondition is re-checked inside the repository write; the loser of a
// concurrent claim gets ErrAssignmentConflict. On success the order (with
// its verification codes) is snapshotted to the courier's offline slot.
func (s *Service) AssignCourier(ctx context.Context, orderID, courierID types.ID) (*Order, error) {
	if courierID == "" {
		return nil, ErrBadRequest
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusReady || o.CourierID != nil {
		return nil, ErrInvalidTransition
	}

	// Codes are generated once; the repository keeps existing ones if a
	// previous assignment attempt already wrote them.
	pickup := o.PickupCode
	if pickup == "" {
		pickup = newVerificationCode()
	}
	delivery := o.DeliveryCode
	if delivery == "" {
		delivery = newVerificationCode()
	}

	ok, err := s.repo.AssignCourier(ctx, orderID, courierID, pickup, delivery)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAssignmentConflict
	}

	_ = s.repo.AppendEvent(ctx, &Event{
		OrderID:    orderID,
		FromStatus: StatusReady,
		ToStatus:   StatusAssigned,
		ActorType:  "courier",
		ActorID:    &courierID,
		CreatedAt:  time.Now(),
	})

	assigned, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if s.slot != nil {
		s.slot.SaveActiveOrder(courierID, assigned)
	}
	return assigned, nil
}

// VerifyPickup checks the restaurant's handoff code. Only legal from
// ASSIGNED; a mismatch leaves the order untouched and may be retried.
func (s *Service) VerifyPickup(ctx context.Context, orderID types.ID, code string) error {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != StatusAssigned {
		return ErrInvalidTransition
	}
	if o.PickupCode == "" || o.PickupCode != code {
		return ErrCodeMismatch
	}
	return s.transition(ctx, orderID, StatusAssigned, StatusOutForDelivery, "courier", o.CourierID)
}

// VerifyDelivery checks the customer's handoff code. On success the order is
// DELIVERED, the offline slot cleared, and the courier credited.
func (s *Service) VerifyDelivery(ctx context.Context, orderID types.ID, code string) error {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != StatusOutForDelivery {
		return ErrInvalidTransition
	}
	if o.DeliveryCode == "" || o.DeliveryCode != code {
		return ErrCodeMismatch
	}
	if err := s.transition(ctx, orderID, StatusOutForDelivery, StatusDelivered, "courier", o.CourierID); err != nil {
		return err
	}

	if s.slot != nil && o.CourierID != nil {
		s.slot.ClearActiveOrder(*o.CourierID)
	}
	if s.couriers != nil && o.CourierID != nil {
		now := time.Now()
		if err := s.couriers.MarkCompletedOrder(ctx, *o.CourierID, now); err != nil {
			s.log.Warn("mark completed order failed", "courier_id", *o.CourierID, "error", err)
		}
		if err := s.couriers.AdjustBalance(ctx, *o.CourierID, o.CourierEarnings); err != nil {
			s.log.Warn("courier balance credit failed", "courier_id", *o.CourierID, "order_id", o.ID, "error", err)
		}
	}
	return nil
}

// Reject records a courier's decline so the order is never offered to them
// again. Declines do not change the order status.
func (s *Service) Reject(ctx context.Context, orderID, courierID types.ID) error {
	if courierID == "" {
		return ErrBadRequest
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != StatusReady || o.CourierID != nil {
		return ErrInvalidTransition
	}
	return s.repo.AddRejectedCourier(ctx, orderID, courierID)
}

// SubmitRating stores the review once and folds it into the courier's and
// restaurant's rolling averages.
func (s *Service) SubmitRating(ctx context.Context, orderID types.ID, r Rating) error {
	if r.StoreStars < 1 || r.StoreStars > 5 || r.CourierStars < 1 || r.CourierStars > 5 {
		return ErrBadRequest
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != StatusDelivered {
		return ErrInvalidTransition
	}
	if o.Rating != nil {
		return ErrAlreadyRated
	}
	ok, err := s.repo.SetRating(ctx, orderID, r)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyRated
	}

	if s.couriers != nil && o.CourierID != nil {
		if err := s.couriers.ApplyRating(ctx, *o.CourierID, r.CourierStars); err != nil {
			s.log.Warn("courier rating update failed", "courier_id", *o.CourierID, "error", err)
		}
	}
	if s.restaurants != nil {
		if err := s.restaurants.ApplyRating(ctx, o.RestaurantID, r.StoreStars); err != nil {
			s.log.Warn("restaurant rating update failed", "restaurant_id", o.RestaurantID, "error", err)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Order, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) transition(ctx context.Context, orderID types.ID, from, to Status, actorType string, actorID *types.ID) error {
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}
	ok, err := s.repo.SetStatus(ctx, orderID, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}
	_ = s.repo.AppendEvent(ctx, &Event{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	})
	return nil
}

// newOrderID derives a time-based id, unique for the system's lifetime.
func newOrderID(t time.Time) types.ID {
	return types.ID(fmt.Sprintf("ORD-%d", t.UnixNano()))
}

// newVerificationCode returns a 4-digit numeric string. Codes are short
// shared secrets for physical handoff, not cryptographic material, but we
// still draw them from crypto/rand.
func newVerificationCode() string {
	var b [2]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%04d", binary.BigEndian.Uint16(b[:])%10000)
}

// README: Order service tests on an in-memory repository (no database needed).
package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"deliverycity/internal/config"
	"deliverycity/internal/types"
)

// memRepo implements Repository with the same conditional-write semantics as
// the Postgres store: every CAS re-checks its precondition under the lock.
type memRepo struct {
	mu     sync.Mutex
	orders map[types.ID]*Order
	events []Event
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[types.ID]*Order)}
}

func (m *memRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id types.ID) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, f Filter) ([]*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Order
	for _, o := range m.orders {
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, o.Status) {
			continue
		}
		if f.Unassigned && o.CourierID != nil {
			continue
		}
		if f.CourierID != "" && (o.CourierID == nil || *o.CourierID != f.CourierID) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRepo) SetStatus(_ context.Context, id types.ID, from, to Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.StatusVersion++
	return true, nil
}

func (m *memRepo) AssignCourier(_ context.Context, id, courierID types.ID, pickupCode, deliveryCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != StatusReady || o.CourierID != nil {
		return false, nil
	}
	o.CourierID = &courierID
	o.Status = StatusAssigned
	o.StatusVersion++
	if o.PickupCode == "" {
		o.PickupCode = pickupCode
	}
	if o.DeliveryCode == "" {
		o.DeliveryCode = deliveryCode
	}
	now := time.Now()
	o.AssignedAt = &now
	return true, nil
}

func (m *memRepo) AddRejectedCourier(_ context.Context, id, courierID types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if !o.RejectedByCourier(courierID) {
		o.RejectedBy = append(o.RejectedBy, courierID)
	}
	return nil
}

func (m *memRepo) SetRating(_ context.Context, id types.ID, r Rating) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Rating != nil {
		return false, nil
	}
	o.Rating = &r
	return true, nil
}

func (m *memRepo) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func containsStatus(ss []Status, s Status) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// stubCatalog snapshots a fixed menu: burger R$25.00, soda R$7.50.
type stubCatalog struct{}

func (stubCatalog) Snapshot(_ context.Context, _ types.ID, lines []CreateItem) (string, []Item, types.Money, error) {
	prices := map[types.ID]int64{"burger": 2500, "soda": 750}
	var items []Item
	var subtotal int64
	for _, l := range lines {
		p, ok := prices[l.ProductID]
		if !ok {
			return "", nil, types.Money{}, errors.New("unknown product")
		}
		items = append(items, Item{ProductID: l.ProductID, Name: string(l.ProductID), UnitPrice: types.BRL(p), Quantity: l.Quantity})
		subtotal += p * int64(l.Quantity)
	}
	return "Cantina da Praça", items, types.BRL(subtotal), nil
}

type stubSlot struct {
	mu     sync.Mutex
	saved  map[types.ID]*Order
	clears int
}

func (s *stubSlot) SaveActiveOrder(courierID types.ID, o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[types.ID]*Order)
	}
	cp := *o
	s.saved[courierID] = &cp
}

func (s *stubSlot) ClearActiveOrder(courierID types.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, courierID)
	s.clears++
}

func (s *stubSlot) get(courierID types.ID) *Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[courierID]
}

type stubLedger struct {
	mu        sync.Mutex
	credited  map[types.ID]int64
	completed map[types.ID]time.Time
	ratings   map[types.ID][]int
}

func newStubLedger() *stubLedger {
	return &stubLedger{
		credited:  make(map[types.ID]int64),
		completed: make(map[types.ID]time.Time),
		ratings:   make(map[types.ID][]int),
	}
}

func (l *stubLedger) AdjustBalance(_ context.Context, id types.ID, amount types.Money) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credited[id] += amount.Amount
	return nil
}

func (l *stubLedger) MarkCompletedOrder(_ context.Context, id types.ID, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.completed[id] = at
	return nil
}

func (l *stubLedger) ApplyRating(_ context.Context, id types.ID, stars int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ratings[id] = append(l.ratings[id], stars)
	return nil
}

type stubRestaurantRatings struct {
	mu    sync.Mutex
	stars map[types.ID][]int
}

func (r *stubRestaurantRatings) ApplyRating(_ context.Context, id types.ID, stars int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stars == nil {
		r.stars = make(map[types.ID][]int)
	}
	r.stars[id] = append(r.stars[id], stars)
	return nil
}

func testCheckout() config.CheckoutConfig {
	return config.CheckoutConfig{DeliveryFeeCents: 500, CommissionRate: 0.10}
}

type fixture struct {
	repo   *memRepo
	slot   *stubSlot
	ledger *stubLedger
	rest   *stubRestaurantRatings
	svc    *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:   newMemRepo(),
		slot:   &stubSlot{},
		ledger: newStubLedger(),
		rest:   &stubRestaurantRatings{},
	}
	f.svc = NewService(f.repo, stubCatalog{}, f.slot, f.ledger, f.rest, testCheckout(), nil)
	return f
}

func (f *fixture) createOrder(t *testing.T) *Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), CreateCommand{
		CustomerID:    "cust-1",
		CustomerName:  "Maria",
		RestaurantID:  "rest-1",
		Items:         []CreateItem{{ProductID: "burger", Quantity: 1}, {ProductID: "soda", Quantity: 2}},
		PaymentMethod: PaymentPix,
		Address:       "Rua das Flores, 120",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

// readyOrder drives a fresh order to READY via the restaurant transitions.
func (f *fixture) readyOrder(t *testing.T) *Order {
	t.Helper()
	o := f.createOrder(t)
	ctx := context.Background()
	if err := f.svc.Accept(ctx, o.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := f.svc.MarkReady(ctx, o.ID); err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	return o
}

func TestCreate_TotalIsSubtotalPlusDeliveryFee(t *testing.T) {
	f := newFixture()
	o, err := f.svc.Create(context.Background(), CreateCommand{
		CustomerID:    "cust-1",
		CustomerName:  "Maria",
		RestaurantID:  "rest-1",
		// 1x burger (25.00) + 2x soda (7.50) = 40.00 subtotal
		Items:         []CreateItem{{ProductID: "burger", Quantity: 1}, {ProductID: "soda", Quantity: 2}},
		PaymentMethod: PaymentPix,
		Address:       "Rua das Flores, 120",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Subtotal.Amount != 4000 {
		t.Errorf("subtotal = %d, want 4000", o.Subtotal.Amount)
	}
	if o.DeliveryFee.Amount != 500 {
		t.Errorf("delivery fee = %d, want 500", o.DeliveryFee.Amount)
	}
	if o.Total.Amount != 4500 {
		t.Errorf("total = %d, want 4500 (subtotal + delivery fee)", o.Total.Amount)
	}
	if o.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", o.Status)
	}
	if o.PlatformFee.Amount != 400 {
		t.Errorf("platform fee = %d, want 400 (10%% of subtotal)", o.PlatformFee.Amount)
	}
	if o.CourierEarnings.Amount != 500 {
		t.Errorf("courier earnings = %d, want the delivery fee", o.CourierEarnings.Amount)
	}
}

func TestCreate_BadRequests(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []CreateCommand{
		{},
		{CustomerID: "c", RestaurantID: "r", Address: "a"}, // no items
		{CustomerID: "c", RestaurantID: "r", Address: "a", Items: []CreateItem{{ProductID: "burger", Quantity: 0}}},
		{CustomerID: "c", RestaurantID: "r", Items: []CreateItem{{ProductID: "burger", Quantity: 1}}}, // no address
	}
	for i, cmd := range cases {
		if _, err := f.svc.Create(ctx, cmd); !errors.Is(err, ErrBadRequest) {
			t.Errorf("case %d: expected ErrBadRequest, got %v", i, err)
		}
	}
}

func TestLifecycle_HappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.readyOrder(t)

	assigned, err := f.svc.AssignCourier(ctx, o.ID, "courier-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != StatusAssigned {
		t.Fatalf("status = %s, want ASSIGNED", assigned.Status)
	}
	if len(assigned.PickupCode) != 4 || len(assigned.DeliveryCode) != 4 {
		t.Fatalf("expected 4-digit codes, got %q / %q", assigned.PickupCode, assigned.DeliveryCode)
	}
	if got := f.slot.get("courier-1"); got == nil || got.ID != o.ID {
		t.Fatalf("expected active-order slot snapshot after assignment")
	}

	if err := f.svc.VerifyPickup(ctx, o.ID, assigned.PickupCode); err != nil {
		t.Fatalf("verify pickup: %v", err)
	}
	if err := f.svc.VerifyDelivery(ctx, o.ID, assigned.DeliveryCode); err != nil {
		t.Fatalf("verify delivery: %v", err)
	}

	final, _ := f.svc.Get(ctx, o.ID)
	if final.Status != StatusDelivered {
		t.Errorf("status = %s, want DELIVERED", final.Status)
	}
	if f.slot.clears != 1 {
		t.Errorf("active-order slot clears = %d, want 1", f.slot.clears)
	}
	if f.ledger.credited["courier-1"] != final.CourierEarnings.Amount {
		t.Errorf("courier credited %d, want %d", f.ledger.credited["courier-1"], final.CourierEarnings.Amount)
	}
	if _, ok := f.ledger.completed["courier-1"]; !ok {
		t.Errorf("expected courier last-completed timestamp to be stamped")
	}
}

func TestActiveOrderSlot_ScopedToCourier(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	oa := f.readyOrder(t)
	ob := f.readyOrder(t)

	if _, err := f.svc.AssignCourier(ctx, oa.ID, "courier-A"); err != nil {
		t.Fatalf("assign A: %v", err)
	}
	assignedB, err := f.svc.AssignCourier(ctx, ob.ID, "courier-B")
	if err != nil {
		t.Fatalf("assign B: %v", err)
	}

	// B's assignment must not displace A's snapshot.
	if got := f.slot.get("courier-A"); got == nil || got.ID != oa.ID {
		t.Fatalf("courier A slot = %+v, want %s", got, oa.ID)
	}
	if got := f.slot.get("courier-B"); got == nil || got.ID != ob.ID {
		t.Fatalf("courier B slot = %+v, want %s", got, ob.ID)
	}

	// B completes their delivery while A is still mid-delivery.
	if err := f.svc.VerifyPickup(ctx, ob.ID, assignedB.PickupCode); err != nil {
		t.Fatalf("verify pickup B: %v", err)
	}
	if err := f.svc.VerifyDelivery(ctx, ob.ID, assignedB.DeliveryCode); err != nil {
		t.Fatalf("verify delivery B: %v", err)
	}

	if got := f.slot.get("courier-B"); got != nil {
		t.Errorf("courier B slot not cleared after delivery: %+v", got)
	}
	if got := f.slot.get("courier-A"); got == nil || got.ID != oa.ID {
		t.Errorf("courier A slot lost after B's delivery: %+v", got)
	}
	current, _ := f.svc.Get(ctx, oa.ID)
	if current.Status != StatusAssigned {
		t.Errorf("courier A order status = %s, want ASSIGNED", current.Status)
	}

	// Cancelling A's order releases A's slot too.
	if err := f.svc.Cancel(ctx, oa.ID, "admin"); err != nil {
		t.Fatalf("cancel A: %v", err)
	}
	if got := f.slot.get("courier-A"); got != nil {
		t.Errorf("courier A slot survives cancellation: %+v", got)
	}
}

func TestVerifyPickup_WrongCodeLeavesStateUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.readyOrder(t)
	assigned, err := f.svc.AssignCourier(ctx, o.ID, "courier-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	wrong := "0000"
	if wrong == assigned.PickupCode {
		wrong = "0001"
	}
	if err := f.svc.VerifyPickup(ctx, o.ID, wrong); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}
	cur, _ := f.svc.Get(ctx, o.ID)
	if cur.Status != StatusAssigned {
		t.Errorf("status = %s, want ASSIGNED after mismatch", cur.Status)
	}

	// Repeated attempts are permitted; the right code still works.
	if err := f.svc.VerifyPickup(ctx, o.ID, assigned.PickupCode); err != nil {
		t.Fatalf("verify pickup after retries: %v", err)
	}
	cur, _ = f.svc.Get(ctx, o.ID)
	if cur.Status != StatusOutForDelivery {
		t.Errorf("status = %s, want OUT_FOR_DELIVERY", cur.Status)
	}
}

func TestVerify_NoOpOutsidePreconditionState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.readyOrder(t)
	assigned, _ := f.svc.AssignCourier(ctx, o.ID, "courier-1")

	// Delivery verification is illegal from ASSIGNED even with the right code.
	if err := f.svc.VerifyDelivery(ctx, o.ID, assigned.DeliveryCode); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if err := f.svc.VerifyPickup(ctx, o.ID, assigned.PickupCode); err != nil {
		t.Fatalf("verify pickup: %v", err)
	}

	// Replaying the consumed pickup code must fail without mutating state.
	if err := f.svc.VerifyPickup(ctx, o.ID, assigned.PickupCode); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on replay, got %v", err)
	}
	cur, _ := f.svc.Get(ctx, o.ID)
	if cur.Status != StatusOutForDelivery {
		t.Errorf("status = %s, want OUT_FOR_DELIVERY after replay", cur.Status)
	}

	if err := f.svc.VerifyDelivery(ctx, o.ID, assigned.DeliveryCode); err != nil {
		t.Fatalf("verify delivery: %v", err)
	}
	// And again for the delivery code on the now-terminal order.
	if err := f.svc.VerifyDelivery(ctx, o.ID, assigned.DeliveryCode); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on delivered order, got %v", err)
	}
}

func TestAssignCourier_IllegalStates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o := f.createOrder(t) // still PENDING
	if _, err := f.svc.AssignCourier(ctx, o.ID, "courier-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from PENDING, got %v", err)
	}

	ready := f.readyOrder(t)
	if _, err := f.svc.AssignCourier(ctx, ready.ID, "courier-1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Second claim after the first landed is a plain invalid transition.
	if _, err := f.svc.AssignCourier(ctx, ready.ID, "courier-2"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on taken order, got %v", err)
	}
}

func TestSetStatus_RejectsVerifiedTargets(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.readyOrder(t)

	for _, target := range []Status{StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusAssigned} {
		if err := f.svc.SetStatus(ctx, o.ID, target, "admin"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("SetStatus(%s) = %v, want ErrInvalidTransition", target, err)
		}
	}
}

func TestCancel_FromAnyNonTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o := f.createOrder(t)
	if err := f.svc.Cancel(ctx, o.ID, "admin"); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	cur, _ := f.svc.Get(ctx, o.ID)
	if cur.Status != StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cur.Status)
	}
	if err := f.svc.Cancel(ctx, o.ID, "admin"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancelling a cancelled order should fail, got %v", err)
	}
}

func TestReject_RecordsDecline(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.readyOrder(t)

	if err := f.svc.Reject(ctx, o.ID, "courier-9"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	// Declining twice is harmless.
	if err := f.svc.Reject(ctx, o.ID, "courier-9"); err != nil {
		t.Fatalf("second reject: %v", err)
	}
	cur, _ := f.svc.Get(ctx, o.ID)
	if len(cur.RejectedBy) != 1 || cur.RejectedBy[0] != "courier-9" {
		t.Errorf("rejected_by = %v, want [courier-9]", cur.RejectedBy)
	}
	if cur.Status != StatusReady {
		t.Errorf("decline must not change status, got %s", cur.Status)
	}
}

func TestSubmitRating(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.readyOrder(t)
	assigned, _ := f.svc.AssignCourier(ctx, o.ID, "courier-1")

	rating := Rating{StoreStars: 5, CourierStars: 4, ProductOK: true, PackagingOK: true}

	// Not delivered yet.
	if err := f.svc.SubmitRating(ctx, o.ID, rating); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition before delivery, got %v", err)
	}

	_ = f.svc.VerifyPickup(ctx, o.ID, assigned.PickupCode)
	_ = f.svc.VerifyDelivery(ctx, o.ID, assigned.DeliveryCode)

	if err := f.svc.SubmitRating(ctx, o.ID, rating); err != nil {
		t.Fatalf("submit rating: %v", err)
	}
	if err := f.svc.SubmitRating(ctx, o.ID, rating); !errors.Is(err, ErrAlreadyRated) {
		t.Fatalf("expected ErrAlreadyRated, got %v", err)
	}

	if got := f.ledger.ratings["courier-1"]; len(got) != 1 || got[0] != 4 {
		t.Errorf("courier ratings = %v, want [4]", got)
	}
	if got := f.rest.stars["rest-1"]; len(got) != 1 || got[0] != 5 {
		t.Errorf("restaurant ratings = %v, want [5]", got)
	}

	if err := f.svc.SubmitRating(ctx, o.ID, Rating{StoreStars: 0, CourierStars: 9}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("out-of-range stars should be rejected, got %v", err)
	}
}

func TestNewVerificationCode_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := newVerificationCode()
		if len(code) != 4 {
			t.Fatalf("code %q is not 4 digits", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains a non-digit", code)
			}
		}
	}
}

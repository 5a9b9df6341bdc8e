// README: Order aggregate, item snapshots, and status definitions.
package order

import (
	"time"

	"deliverycity/internal/types"
)

type Status string

const (
	StatusNone           Status = "NONE"
	StatusPending        Status = "PENDING"
	StatusPreparing      Status = "PREPARING"
	StatusReady          Status = "READY"
	StatusAssigned       Status = "ASSIGNED"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentPix        PaymentMethod = "PIX"
	PaymentCash       PaymentMethod = "CASH"
)

// Item is a line-item snapshot taken at checkout. UnitPrice is the catalog
// price at order time and is never re-read from the live menu.
type Item struct {
	ProductID types.ID    `json:"product_id"`
	Name      string      `json:"name"`
	UnitPrice types.Money `json:"unit_price"`
	Quantity  int         `json:"quantity"`
}

// Rating is the customer's post-delivery review.
type Rating struct {
	StoreStars   int    `json:"store_stars"`
	CourierStars int    `json:"courier_stars"`
	ProductOK    bool   `json:"product_ok"`
	PackagingOK  bool   `json:"packaging_ok"`
	Comment      string `json:"comment,omitempty"`
}

type Order struct {
	ID             types.ID
	RestaurantID   types.ID
	RestaurantName string
	CustomerID     types.ID
	CustomerName   string
	// CustomerAddress is the free-text delivery address; CustomerCoords the
	// geocoded point when available.
	CustomerAddress string
	CustomerCoords  *types.Point

	Items []Item

	// Monetary breakdown, fixed at creation. Total = Subtotal + DeliveryFee.
	Subtotal        types.Money
	DeliveryFee     types.Money
	PlatformFee     types.Money
	CourierEarnings types.Money
	Total           types.Money

	PaymentMethod PaymentMethod
	ChangeFor     *types.Money

	Status        Status
	StatusVersion int
	CourierID     *types.ID
	// RejectedBy lists couriers who declined this order; they never see it
	// offered again.
	RejectedBy []types.ID

	PickupCode   string
	DeliveryCode string
	Rating       *Rating

	CreatedAt   time.Time
	AssignedAt  *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

// Event is one row of the order's status history.
type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the order state flow (diagram) as code.
// DELIVERED and CANCELLED are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusPending:        {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReady, StatusCancelled},
	StatusReady:          {StatusAssigned, StatusCancelled},
	StatusAssigned:       {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// RejectedByCourier reports whether the courier previously declined this order.
func (o *Order) RejectedByCourier(id types.ID) bool {
	for _, r := range o.RejectedBy {
		if r == id {
			return true
		}
	}
	return false
}

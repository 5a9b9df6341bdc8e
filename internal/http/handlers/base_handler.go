// README: Shared handler utilities: JSON error mapping and response views.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"deliverycity/internal/modules/courier"
	"deliverycity/internal/modules/customer"
	"deliverycity/internal/modules/dispatch"
	"deliverycity/internal/modules/order"
	"deliverycity/internal/modules/restaurant"
	"deliverycity/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// writeDomainError maps service sentinels onto HTTP statuses. Conflicts
// (lost assignment race, wrong state, duplicate rating) are 409 so clients
// re-fetch; a wrong verification code is 422 so the courier retypes it.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest) || errors.Is(err, restaurant.ErrBadRequest) ||
		errors.Is(err, restaurant.ErrUnknownProduct) || errors.Is(err, courier.ErrBadRequest) ||
		errors.Is(err, customer.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound) || errors.Is(err, restaurant.ErrNotFound) ||
		errors.Is(err, courier.ErrNotFound) || errors.Is(err, customer.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, dispatch.ErrNotEligible):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrInvalidTransition) || errors.Is(err, order.ErrAssignmentConflict) ||
		errors.Is(err, order.ErrAlreadyRated):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrCodeMismatch):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type itemView struct {
	ProductID types.ID    `json:"product_id"`
	Name      string      `json:"name"`
	UnitPrice types.Money `json:"unit_price"`
	Quantity  int         `json:"quantity"`
}

type orderView struct {
	ID              types.ID     `json:"id"`
	RestaurantID    types.ID     `json:"restaurant_id"`
	RestaurantName  string       `json:"restaurant_name"`
	CustomerName    string       `json:"customer_name"`
	CustomerAddress string       `json:"customer_address"`
	CustomerCoords  *types.Point `json:"customer_coords,omitempty"`
	Items           []itemView   `json:"items"`
	Subtotal        types.Money  `json:"subtotal"`
	DeliveryFee     types.Money  `json:"delivery_fee"`
	Total           types.Money  `json:"total"`
	PaymentMethod   string       `json:"payment_method"`
	Status          order.Status `json:"status"`
	CourierID       *types.ID    `json:"courier_id,omitempty"`
	// Verification codes are shown to the customer and the restaurant,
	// never to the courier, who must collect them in person.
	PickupCode   string        `json:"pickup_code,omitempty"`
	DeliveryCode string        `json:"delivery_code,omitempty"`
	Rating       *order.Rating `json:"rating,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

func viewOrder(o *order.Order, includeCodes bool) orderView {
	items := make([]itemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = itemView{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		}
	}
	v := orderView{
		ID:              o.ID,
		RestaurantID:    o.RestaurantID,
		RestaurantName:  o.RestaurantName,
		CustomerName:    o.CustomerName,
		CustomerAddress: o.CustomerAddress,
		CustomerCoords:  o.CustomerCoords,
		Items:           items,
		Subtotal:        o.Subtotal,
		DeliveryFee:     o.DeliveryFee,
		Total:           o.Total,
		PaymentMethod:   string(o.PaymentMethod),
		Status:          o.Status,
		CourierID:       o.CourierID,
		Rating:          o.Rating,
		CreatedAt:       o.CreatedAt,
	}
	if includeCodes {
		v.PickupCode = o.PickupCode
		v.DeliveryCode = o.DeliveryCode
	}
	return v
}

func viewOrders(orders []*order.Order, includeCodes bool) []orderView {
	out := make([]orderView, len(orders))
	for i, o := range orders {
		out[i] = viewOrder(o, includeCodes)
	}
	return out
}

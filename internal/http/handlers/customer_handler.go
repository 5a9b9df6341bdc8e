// README: Customer-facing handlers: checkout, order tracking, ratings.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deliverycity/internal/http/middleware"
	"deliverycity/internal/modules/order"
	"deliverycity/internal/types"
)

type CustomerHandler struct {
	orders *order.Service
}

func NewCustomerHandler(orders *order.Service) *CustomerHandler {
	return &CustomerHandler{orders: orders}
}

type checkoutItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutReq struct {
	RestaurantID   string            `json:"restaurant_id"`
	Items          []checkoutItemReq `json:"items"`
	PaymentMethod  string            `json:"payment_method"`
	CustomerName   string            `json:"customer_name"`
	Address        string            `json:"address"`
	Coords         *types.Point      `json:"coords"`
	ChangeForCents *int64            `json:"change_for_cents"`
}

func (h *CustomerHandler) Checkout(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	items := make([]order.CreateItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.CreateItem{ProductID: types.ID(it.ProductID), Quantity: it.Quantity}
	}
	o, err := h.orders.Create(c.Request.Context(), order.CreateCommand{
		CustomerID:     middleware.Session(c).UserID,
		CustomerName:   req.CustomerName,
		RestaurantID:   types.ID(req.RestaurantID),
		Items:          items,
		PaymentMethod:  order.PaymentMethod(req.PaymentMethod),
		Address:        req.Address,
		Coords:         req.Coords,
		ChangeForCents: req.ChangeForCents,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOrder(o, true))
}

func (h *CustomerHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if o.CustomerID != middleware.Session(c).UserID {
		writeError(c, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	c.JSON(http.StatusOK, viewOrder(o, true))
}

func (h *CustomerHandler) List(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), order.Filter{
		CustomerID: middleware.Session(c).UserID,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": viewOrders(orders, true)})
}

func (h *CustomerHandler) Cancel(c *gin.Context) {
	id := types.ID(c.Param("id"))
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if o.CustomerID != middleware.Session(c).UserID {
		writeError(c, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	if err := h.orders.Cancel(c.Request.Context(), id, "customer"); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.StatusCancelled})
}

type ratingReq struct {
	StoreStars   int    `json:"store_stars"`
	CourierStars int    `json:"courier_stars"`
	ProductOK    bool   `json:"product_ok"`
	PackagingOK  bool   `json:"packaging_ok"`
	Comment      string `json:"comment"`
}

func (h *CustomerHandler) SubmitRating(c *gin.Context) {
	var req ratingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id := types.ID(c.Param("id"))
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if o.CustomerID != middleware.Session(c).UserID {
		writeError(c, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	err = h.orders.SubmitRating(c.Request.Context(), id, order.Rating{
		StoreStars:   req.StoreStars,
		CourierStars: req.CourierStars,
		ProductOK:    req.ProductOK,
		PackagingOK:  req.PackagingOK,
		Comment:      req.Comment,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rated": true})
}

// README: Restaurant-side handlers: kitchen order flow and menu management.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deliverycity/internal/http/middleware"
	"deliverycity/internal/modules/order"
	"deliverycity/internal/modules/restaurant"
	"deliverycity/internal/types"
)

type RestaurantHandler struct {
	orders      *order.Service
	restaurants *restaurant.Service
}

func NewRestaurantHandler(orders *order.Service, restaurants *restaurant.Service) *RestaurantHandler {
	return &RestaurantHandler{orders: orders, restaurants: restaurants}
}

// restaurantID resolves the caller's restaurant. The session subject is the
// restaurant id for restaurant-role tokens.
func restaurantID(c *gin.Context) types.ID {
	return middleware.Session(c).UserID
}

func (h *RestaurantHandler) ListOrders(c *gin.Context) {
	f := order.Filter{RestaurantID: restaurantID(c)}
	if st := c.Query("status"); st != "" {
		f.Statuses = []order.Status{order.Status(st)}
	}
	orders, err := h.orders.List(c.Request.Context(), f)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": viewOrders(orders, true)})
}

func (h *RestaurantHandler) owns(c *gin.Context, id types.ID) bool {
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return false
	}
	if o.RestaurantID != restaurantID(c) {
		writeError(c, http.StatusNotFound, order.ErrNotFound.Error())
		return false
	}
	return true
}

func (h *RestaurantHandler) Accept(c *gin.Context) {
	id := types.ID(c.Param("id"))
	if !h.owns(c, id) {
		return
	}
	if err := h.orders.Accept(c.Request.Context(), id); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.StatusPreparing})
}

func (h *RestaurantHandler) MarkReady(c *gin.Context) {
	id := types.ID(c.Param("id"))
	if !h.owns(c, id) {
		return
	}
	if err := h.orders.MarkReady(c.Request.Context(), id); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.StatusReady})
}

func (h *RestaurantHandler) Cancel(c *gin.Context) {
	id := types.ID(c.Param("id"))
	if !h.owns(c, id) {
		return
	}
	if err := h.orders.Cancel(c.Request.Context(), id, "restaurant"); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.StatusCancelled})
}

func (h *RestaurantHandler) Menu(c *gin.Context) {
	products, err := h.restaurants.Menu(c.Request.Context(), restaurantID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

type productReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	ImageURL    string `json:"image_url"`
	Available   *bool  `json:"available"`
}

func (r productReq) command(restaurantID types.ID) restaurant.ProductCommand {
	available := true
	if r.Available != nil {
		available = *r.Available
	}
	return restaurant.ProductCommand{
		RestaurantID: restaurantID,
		Name:         r.Name,
		Description:  r.Description,
		PriceCents:   r.PriceCents,
		ImageURL:     r.ImageURL,
		Available:    available,
	}
}

func (h *RestaurantHandler) AddProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.restaurants.AddProduct(c.Request.Context(), req.command(restaurantID(c)))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *RestaurantHandler) UpdateProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.restaurants.UpdateProduct(c.Request.Context(), types.ID(c.Param("id")), req.command(restaurantID(c)))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *RestaurantHandler) RemoveProduct(c *gin.Context) {
	if err := h.restaurants.RemoveProduct(c.Request.Context(), restaurantID(c), types.ID(c.Param("id"))); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type describeReq struct {
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
}

// Describe writes AI menu copy for the product editor. Always succeeds;
// provider trouble falls back to a stock line.
func (h *RestaurantHandler) Describe(c *gin.Context) {
	var req describeReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	text := h.restaurants.GenerateDescription(c.Request.Context(), req.Name, req.Ingredients)
	c.JSON(http.StatusOK, gin.H{"description": text})
}

type openReq struct {
	Open bool `json:"open"`
}

func (h *RestaurantHandler) SetOpen(c *gin.Context) {
	var req openReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.restaurants.SetOpen(c.Request.Context(), restaurantID(c), req.Open); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": req.Open})
}

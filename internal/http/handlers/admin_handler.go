// README: Admin handlers: order intervention, courier approval and wallet
// adjustments, restaurant onboarding.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deliverycity/internal/modules/courier"
	"deliverycity/internal/modules/order"
	"deliverycity/internal/modules/restaurant"
	"deliverycity/internal/types"
)

type AdminHandler struct {
	orders      *order.Service
	couriers    *courier.Service
	restaurants *restaurant.Service
}

func NewAdminHandler(orders *order.Service, couriers *courier.Service, restaurants *restaurant.Service) *AdminHandler {
	return &AdminHandler{orders: orders, couriers: couriers, restaurants: restaurants}
}

func (h *AdminHandler) CancelOrder(c *gin.Context) {
	if err := h.orders.Cancel(c.Request.Context(), types.ID(c.Param("id")), "admin"); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.StatusCancelled})
}

func (h *AdminHandler) ApproveCourier(c *gin.Context) {
	if err := h.couriers.Approve(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": courier.AccountApproved})
}

func (h *AdminHandler) BlockCourier(c *gin.Context) {
	if err := h.couriers.Block(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": courier.AccountBlocked})
}

type balanceReq struct {
	AmountCents int64 `json:"amount_cents"`
}

// AdjustCourierBalance credits (or, with a negative amount, debits) a
// courier's balance, typically after a support adjustment or payout.
func (h *AdminHandler) AdjustCourierBalance(c *gin.Context) {
	var req balanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.AmountCents == 0 {
		writeError(c, http.StatusBadRequest, "amount_cents must be non-zero")
		return
	}
	id := types.ID(c.Param("id"))
	if err := h.couriers.AdjustBalance(c.Request.Context(), id, types.BRL(req.AmountCents)); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"adjusted": true})
}

type createRestaurantReq struct {
	OwnerID  string      `json:"owner_id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Phone    string      `json:"phone"`
	Address  string      `json:"address"`
	Coords   types.Point `json:"coords"`
	ImageURL string      `json:"image_url"`
}

func (h *AdminHandler) CreateRestaurant(c *gin.Context) {
	var req createRestaurantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.restaurants.Create(c.Request.Context(), restaurant.CreateCommand{
		OwnerID:  types.ID(req.OwnerID),
		Name:     req.Name,
		Category: req.Category,
		Phone:    req.Phone,
		Address:  req.Address,
		Coords:   req.Coords,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

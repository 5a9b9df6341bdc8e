// README: Courier-side handlers: offers, claiming, code verification with
// offline durability, and the position stream.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deliverycity/internal/http/middleware"
	"deliverycity/internal/modules/courier"
	"deliverycity/internal/modules/dispatch"
	"deliverycity/internal/modules/location"
	"deliverycity/internal/modules/order"
	"deliverycity/internal/offline"
	"deliverycity/internal/types"
)

type CourierHandler struct {
	orders     *order.Service
	couriers   *courier.Service
	dispatch   *dispatch.Service
	confirmer  *offline.DurableConfirmer
	reconciler *offline.Reconciler
	offstore   *offline.Store
	estimator  *location.Estimator
}

func NewCourierHandler(
	orders *order.Service,
	couriers *courier.Service,
	dispatchSvc *dispatch.Service,
	confirmer *offline.DurableConfirmer,
	reconciler *offline.Reconciler,
	offstore *offline.Store,
	estimator *location.Estimator,
) *CourierHandler {
	return &CourierHandler{
		orders:     orders,
		couriers:   couriers,
		dispatch:   dispatchSvc,
		confirmer:  confirmer,
		reconciler: reconciler,
		offstore:   offstore,
		estimator:  estimator,
	}
}

func courierID(c *gin.Context) types.ID {
	return middleware.Session(c).UserID
}

type registerReq struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	VehicleType  string `json:"vehicle_type"`
	LicensePlate string `json:"license_plate"`
	PixKey       string `json:"pix_key"`
}

func (h *CourierHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.couriers.Register(c.Request.Context(), courier.RegisterCommand{
		ID:           courierID(c),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		VehicleType:  req.VehicleType,
		LicensePlate: req.LicensePlate,
		PixKey:       req.PixKey,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *CourierHandler) Profile(c *gin.Context) {
	p, err := h.couriers.Get(c.Request.Context(), courierID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type offerView struct {
	Order      orderView                `json:"order"`
	DistanceKm float64                  `json:"distance_km"`
	Score      float64                  `json:"score"`
	Travel     *location.TravelEstimate `json:"travel,omitempty"`
}

// Offers lists claimable orders ranked for this courier, annotated with
// travel estimates to each pickup.
func (h *CourierHandler) Offers(c *gin.Context) {
	ctx := c.Request.Context()
	id := courierID(c)

	candidates, err := h.dispatch.Offers(ctx, id)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	var origin *types.Point
	if p, err := h.couriers.Get(ctx, id); err == nil {
		origin = p.Position
	}
	dests := make([]location.Destination, len(candidates))
	for i, cand := range candidates {
		dests[i] = location.Destination{ID: cand.Order.ID, Point: cand.RestaurantCoords}
	}
	estimates := h.estimator.EstimateTravelTimes(ctx, origin, dests)

	out := make([]offerView, len(candidates))
	for i, cand := range candidates {
		view := offerView{
			Order:      viewOrder(cand.Order, false),
			DistanceKm: cand.DistanceKm,
			Score:      cand.Score,
		}
		if est, ok := estimates[cand.Order.ID]; ok {
			est := est
			view.Travel = &est
		}
		out[i] = view
	}
	c.JSON(http.StatusOK, gin.H{"offers": out})
}

func (h *CourierHandler) Accept(c *gin.Context) {
	o, err := h.orders.AssignCourier(c.Request.Context(), types.ID(c.Param("id")), courierID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOrder(o, false))
}

func (h *CourierHandler) Reject(c *gin.Context) {
	if err := h.orders.Reject(c.Request.Context(), types.ID(c.Param("id")), courierID(c)); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rejected": true})
}

type verifyReq struct {
	Code string `json:"code"`
}

func (h *CourierHandler) VerifyPickup(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.confirmer.ConfirmPickup(c.Request.Context(), courierID(c), types.ID(c.Param("id")), req.Code)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeConfirmResult(c, res)
}

func (h *CourierHandler) VerifyDelivery(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.confirmer.ConfirmDelivery(c.Request.Context(), courierID(c), types.ID(c.Param("id")), req.Code)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeConfirmResult(c, res)
}

func writeConfirmResult(c *gin.Context, res offline.Result) {
	status := http.StatusOK
	if res == offline.ResultQueued {
		// Accepted for later replay, not yet applied server-side.
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"result": res})
}

// Sync triggers a replay sweep of queued confirmations, typically fired by
// the app on reconnect.
func (h *CourierHandler) Sync(c *gin.Context) {
	applied := h.reconciler.Replay(c.Request.Context())
	pending := h.offstore.Pending(courierID(c))
	c.JSON(http.StatusOK, gin.H{"applied": applied, "pending": pending})
}

// ActiveOrder serves the calling courier's mirrored order so the app can
// render the delivery screen with no backend round trip. The slot is keyed
// by courier id; nobody sees another courier's order.
func (h *CourierHandler) ActiveOrder(c *gin.Context) {
	o := h.offstore.ActiveOrder(courierID(c))
	if o == nil {
		writeError(c, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	c.JSON(http.StatusOK, viewOrder(o, false))
}

type positionReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *CourierHandler) UpdatePosition(c *gin.Context) {
	var req positionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	h.couriers.UpdatePosition(c.Request.Context(), courierID(c), types.Point{Lat: req.Lat, Lng: req.Lng})
	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

// README: Public storefront handlers: browse restaurants and menus,
// reverse-geocode the delivery pin.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"deliverycity/internal/maps"
	"deliverycity/internal/modules/location"
	"deliverycity/internal/modules/restaurant"
	"deliverycity/internal/types"
)

type StorefrontHandler struct {
	restaurants *restaurant.Service
	geocode     *maps.GeocodeService
}

// NewStorefrontHandler wires the public surface. geocode may be nil when no
// Maps API key is configured.
func NewStorefrontHandler(restaurants *restaurant.Service, geocode *maps.GeocodeService) *StorefrontHandler {
	return &StorefrontHandler{restaurants: restaurants, geocode: geocode}
}

// ListRestaurants serves the storefront. Default order is best-rated
// first; with a lat/lng pin the list re-sorts nearest first.
func (h *StorefrontHandler) ListRestaurants(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.restaurants.List(c.Request.Context(), limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat == nil && errLng == nil {
		location.SortByDistance(list, func(r *restaurant.Restaurant) float64 {
			return location.HaversineKm(lat, lng, r.Coords.Lat, r.Coords.Lng)
		})
	}
	c.JSON(http.StatusOK, gin.H{"restaurants": list})
}

func (h *StorefrontHandler) GetRestaurant(c *gin.Context) {
	r, err := h.restaurants.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *StorefrontHandler) Menu(c *gin.Context) {
	products, err := h.restaurants.Menu(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// ReverseGeocode turns the delivery pin into a street address for checkout.
func (h *StorefrontHandler) ReverseGeocode(c *gin.Context) {
	if h.geocode == nil {
		writeError(c, http.StatusServiceUnavailable, "geocoding not configured")
		return
	}
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	addr := h.geocode.ReverseGeocode(c.Request.Context(), lat, lng)
	c.JSON(http.StatusOK, addr)
}

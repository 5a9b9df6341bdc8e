// README: Customer profile handlers: the address book.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deliverycity/internal/http/middleware"
	"deliverycity/internal/modules/customer"
	"deliverycity/internal/types"
)

type ProfileHandler struct {
	addresses *customer.Service
}

func NewProfileHandler(addresses *customer.Service) *ProfileHandler {
	return &ProfileHandler{addresses: addresses}
}

type addressReq struct {
	Label      string      `json:"label"`
	Street     string      `json:"street"`
	Number     string      `json:"number"`
	Complement string      `json:"complement"`
	District   string      `json:"district"`
	City       string      `json:"city"`
	Coords     types.Point `json:"coords"`
}

func (r addressReq) command() customer.AddressCommand {
	return customer.AddressCommand{
		Label:      r.Label,
		Street:     r.Street,
		Number:     r.Number,
		Complement: r.Complement,
		District:   r.District,
		City:       r.City,
		Coords:     r.Coords,
	}
}

func (h *ProfileHandler) ListAddresses(c *gin.Context) {
	list, err := h.addresses.Addresses(c.Request.Context(), middleware.Session(c).UserID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": list})
}

func (h *ProfileHandler) AddAddress(c *gin.Context) {
	var req addressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	a, err := h.addresses.AddAddress(c.Request.Context(), middleware.Session(c).UserID, req.command())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *ProfileHandler) UpdateAddress(c *gin.Context) {
	var req addressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	a, err := h.addresses.UpdateAddress(
		c.Request.Context(), middleware.Session(c).UserID, types.ID(c.Param("id")), req.command(),
	)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *ProfileHandler) RemoveAddress(c *gin.Context) {
	err := h.addresses.RemoveAddress(c.Request.Context(), middleware.Session(c).UserID, types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// README: Customer address book entries used at checkout.
package customer

import (
	"time"

	"deliverycity/internal/types"
)

type Address struct {
	ID         types.ID    `json:"id"`
	CustomerID types.ID    `json:"customer_id"`
	Label      string      `json:"label"`
	Street     string      `json:"street"`
	Number     string      `json:"number"`
	Complement string      `json:"complement,omitempty"`
	District   string      `json:"district,omitempty"`
	City       string      `json:"city"`
	Coords     types.Point `json:"coords"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Line renders the address the way it is stamped onto an order at checkout.
func (a *Address) Line() string {
	s := a.Street + ", " + a.Number
	if a.Complement != "" {
		s += " - " + a.Complement
	}
	if a.District != "" {
		s += ", " + a.District
	}
	return s + ", " + a.City
}

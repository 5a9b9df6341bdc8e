// README: Restaurant catalog: store profile and menu products.
package restaurant

import (
	"time"

	"deliverycity/internal/types"
)

type Restaurant struct {
	ID       types.ID    `json:"id"`
	OwnerID  types.ID    `json:"owner_id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Phone    string      `json:"phone"`
	Address  string      `json:"address"`
	Coords   types.Point `json:"coords"`
	ImageURL string      `json:"image_url"`

	// Rolling review aggregate, updated server-side per rating.
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int     `json:"ratings_count"`

	IsOpen    bool      `json:"is_open"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is one menu entry. Price lives on the server in cents; the order
// module snapshots it at checkout.
type Product struct {
	ID           types.ID  `json:"id"`
	RestaurantID types.ID  `json:"restaurant_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PriceCents   int64     `json:"price_cents"`
	ImageURL     string    `json:"image_url"`
	Available    bool      `json:"available"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *Product) Price() types.Money {
	return types.BRL(p.PriceCents)
}

// README: Dispatch service: builds the per-courier offer list. Strictly
// read-only; claiming an offer goes through the order service, whose
// conditional write decides races.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"deliverycity/internal/modules/courier"
	"deliverycity/internal/modules/location"
	"deliverycity/internal/modules/order"
	"deliverycity/internal/modules/restaurant"
	"deliverycity/internal/types"
)

var ErrNotEligible = errors.New("courier not eligible for offers")

// OrderSource lists claimable orders. order.Service satisfies it.
type OrderSource interface {
	List(ctx context.Context, f order.Filter) ([]*order.Order, error)
}

// CourierDirectory resolves a courier's profile with last known position.
type CourierDirectory interface {
	Get(ctx context.Context, id types.ID) (*courier.Profile, error)
}

// RestaurantDirectory resolves pickup coordinates.
type RestaurantDirectory interface {
	Get(ctx context.Context, id types.ID) (*restaurant.Restaurant, error)
}

type Service struct {
	orders      OrderSource
	couriers    CourierDirectory
	restaurants RestaurantDirectory
	now         func() time.Time
	log         *slog.Logger
}

func NewService(orders OrderSource, couriers CourierDirectory, restaurants RestaurantDirectory, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		orders:      orders,
		couriers:    couriers,
		restaurants: restaurants,
		now:         time.Now,
		log:         log,
	}
}

// Offers returns the READY, unassigned orders this courier may claim,
// scored and sorted best-first. Orders the courier already declined are
// excluded. Ties sort by order id so every refresh shows the same ranking.
func (s *Service) Offers(ctx context.Context, courierID types.ID) ([]Candidate, error) {
	p, err := s.couriers.Get(ctx, courierID)
	if err != nil {
		return nil, err
	}
	if !p.Eligible() {
		return nil, ErrNotEligible
	}

	orders, err := s.orders.List(ctx, order.Filter{
		Statuses:   []order.Status{order.StatusReady},
		Unassigned: true,
	})
	if err != nil {
		return nil, err
	}

	rating := p.AverageRating
	if p.RatingsCount == 0 {
		rating = defaultRating
	}
	idle := defaultIdle
	if p.LastCompletedAt != nil {
		idle = s.now().Sub(*p.LastCompletedAt)
	}

	candidates := make([]Candidate, 0, len(orders))
	for _, o := range orders {
		if o.RejectedByCourier(courierID) {
			continue
		}
		r, err := s.restaurants.Get(ctx, o.RestaurantID)
		if err != nil {
			// An order pointing at a missing restaurant is not offerable.
			s.log.Warn("skipping offer with unresolvable restaurant",
				"order_id", o.ID, "restaurant_id", o.RestaurantID, "error", err)
			continue
		}

		distKm := pinnedDistanceKm
		if p.Position != nil {
			distKm = location.HaversineKm(p.Position.Lat, p.Position.Lng, r.Coords.Lat, r.Coords.Lng)
		}

		candidates = append(candidates, Candidate{
			Order:            o,
			RestaurantCoords: r.Coords,
			DistanceKm:       distKm,
			Score:            Score(distKm, rating, idle),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Order.ID < candidates[j].Order.ID
	})
	return candidates, nil
}

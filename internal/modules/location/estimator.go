// README: Travel-time estimation with a live provider and a haversine fallback.
package location

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"deliverycity/internal/types"
)

// Destination is one target of a travel-time query.
type Destination struct {
	ID    types.ID
	Point types.Point
}

// TravelEstimate is the per-destination result. DistanceMeters and the
// minute count are always populated; IsFallback marks values computed
// locally instead of by the routing provider.
type TravelEstimate struct {
	DistanceText    string `json:"distance_text"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationText    string `json:"duration_text"`
	DurationMinutes int    `json:"duration_minutes"`
	IsFallback      bool   `json:"is_fallback"`
}

// TravelTimeProvider is the live routing backend. Implementations may fail
// wholesale or per destination; the estimator absorbs both.
type TravelTimeProvider interface {
	TravelTimes(ctx context.Context, origin types.Point, dests []Destination) (map[types.ID]TravelEstimate, error)
}

type Estimator struct {
	provider TravelTimeProvider
	log      *slog.Logger
}

func NewEstimator(provider TravelTimeProvider, log *slog.Logger) *Estimator {
	if log == nil {
		log = slog.Default()
	}
	return &Estimator{provider: provider, log: log}
}

// EstimateTravelTimes returns an estimate for every requested destination.
// Provider errors and per-destination gaps are filled from the haversine
// heuristic; the caller never sees an error and never a partial map.
func (e *Estimator) EstimateTravelTimes(ctx context.Context, origin *types.Point, dests []Destination) map[types.ID]TravelEstimate {
	out := make(map[types.ID]TravelEstimate, len(dests))

	var live map[types.ID]TravelEstimate
	if e.provider != nil && origin != nil {
		var err error
		live, err = e.provider.TravelTimes(ctx, *origin, dests)
		if err != nil {
			e.log.Warn("travel-time provider failed, using fallback", "error", err)
			live = nil
		}
	}

	for _, d := range dests {
		if est, ok := live[d.ID]; ok {
			out[d.ID] = est
			continue
		}
		out[d.ID] = fallbackEstimate(origin, d.Point)
	}
	return out
}

// fallbackEstimate mirrors the heuristic the mobile app used when the maps
// provider was unreachable: duration = km*2 + 10 minutes, rounded up. With
// no origin at all it pins 5.0 km / 30 min.
func fallbackEstimate(origin *types.Point, dest types.Point) TravelEstimate {
	if origin == nil {
		return TravelEstimate{
			DistanceText:    "5.0 km",
			DistanceMeters:  5000,
			DurationText:    "30 min",
			DurationMinutes: 30,
			IsFallback:      true,
		}
	}
	distKm := HaversineKm(origin.Lat, origin.Lng, dest.Lat, dest.Lng)
	mins := int(math.Ceil(distKm*2 + 10))
	return TravelEstimate{
		DistanceText:    fmt.Sprintf("%.1f km", distKm),
		DistanceMeters:  int(math.Round(distKm * 1000)),
		DurationText:    fmt.Sprintf("%d min", mins),
		DurationMinutes: mins,
		IsFallback:      true,
	}
}

package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"deliverycity/internal/modules/location"
	"deliverycity/internal/types"
)

// requestTimeout bounds every Distance Matrix call so a slow provider can
// never stall the offer list; callers fall back on timeout.
const requestTimeout = 5 * time.Second

// DistanceService implements location.TravelTimeProvider on the Google
// Distance Matrix API.
type DistanceService struct {
	client *maps.Client
}

// NewDistanceService creates a DistanceService with the given API key.
func NewDistanceService(apiKey string) (*DistanceService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &DistanceService{client: client}, nil
}

// TravelTimes queries one origin against all destinations. Destinations the
// API reports as unroutable are simply absent from the result map; the
// estimator fills those in.
func (s *DistanceService) TravelTimes(ctx context.Context, origin types.Point, dests []location.Destination) (map[types.ID]location.TravelEstimate, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	destStrs := make([]string, len(dests))
	for i, d := range dests {
		destStrs[i] = latLng(d.Point)
	}

	r := &maps.DistanceMatrixRequest{
		Origins:      []string{latLng(origin)},
		Destinations: destStrs,
		Mode:         maps.TravelModeDriving,
		Language:     "pt-BR",
	}
	resp, err := s.client.DistanceMatrix(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("distance matrix: %w", err)
	}
	if len(resp.Rows) == 0 {
		return nil, fmt.Errorf("distance matrix: empty response")
	}

	out := make(map[types.ID]location.TravelEstimate, len(dests))
	for i, el := range resp.Rows[0].Elements {
		if i >= len(dests) || el.Status != "OK" {
			continue
		}
		out[dests[i].ID] = location.TravelEstimate{
			DistanceText:    el.Distance.HumanReadable,
			DistanceMeters:  el.Distance.Meters,
			DurationText:    fmt.Sprintf("%d min", int(el.Duration.Minutes())),
			DurationMinutes: int(el.Duration.Minutes()),
			IsFallback:      false,
		}
	}
	return out, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

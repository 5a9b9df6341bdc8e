package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// Address is a simplified reverse-geocoding result.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	FullAddress  string `json:"full_address"`
}

// GeocodeService handles reverse geocoding through the Google Geocoding API.
type GeocodeService struct {
	client *maps.Client
}

func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

// ReverseGeocode resolves coordinates into address fields. On any failure it
// returns a coordinate-only address instead of an error so address capture
// keeps working without the provider.
func (s *GeocodeService) ReverseGeocode(ctx context.Context, lat, lng float64) Address {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	fallback := Address{FullAddress: fmt.Sprintf("%.5f, %.5f", lat, lng)}

	results, err := s.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: lat, Lng: lng},
		Language: "pt-BR",
	})
	if err != nil || len(results) == 0 {
		return fallback
	}

	first := results[0]
	component := func(typ string) string {
		for _, c := range first.AddressComponents {
			for _, t := range c.Types {
				if t == typ {
					return c.LongName
				}
			}
		}
		return ""
	}

	neighborhood := component("sublocality")
	if neighborhood == "" {
		neighborhood = component("neighborhood")
	}
	city := component("administrative_area_level_2")
	if city == "" {
		city = component("locality")
	}

	return Address{
		Street:       component("route"),
		Number:       component("street_number"),
		Neighborhood: neighborhood,
		City:         city,
		State:        component("administrative_area_level_1"),
		ZipCode:      component("postal_code"),
		FullAddress:  first.FormattedAddress,
	}
}

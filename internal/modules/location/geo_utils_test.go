package location

import (
	"math"
	"testing"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lng1      float64
		lat2      float64
		lng2      float64
		wantKm    float64
		tolerance float64
	}{
		{
			name: "same point",
			lat1: -9.5397, lng1: -57.3997,
			lat2: -9.5397, lng2: -57.3997,
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name: "Apiacás to Alta Floresta (~80km)",
			lat1: -9.5397, lng1: -57.3997,
			lat2: -9.8709, lng2: -56.0862,
			wantKm:    148,
			tolerance: 10,
		},
		{
			name: "São Paulo to Rio de Janeiro (~360km)",
			lat1: -23.5505, lng1: -46.6333,
			lat2: -22.9068, lng2: -43.1729,
			wantKm:    360,
			tolerance: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("HaversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	d1 := HaversineKm(-9.5, -57.4, -10.5, -56.4)
	d2 := HaversineKm(-10.5, -56.4, -9.5, -57.4)
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func TestSortByDistance(t *testing.T) {
	type entry struct {
		id   string
		dist float64
	}
	items := []entry{
		{id: "c", dist: 5.0},
		{id: "a", dist: 1.0},
		{id: "b", dist: 3.0},
	}

	SortByDistance(items, func(e entry) float64 { return e.dist })

	if items[0].id != "a" || items[1].id != "b" || items[2].id != "c" {
		t.Errorf("unexpected sort order: %v", items)
	}
}

func TestSortByDistance_Empty(t *testing.T) {
	var items []struct{ d float64 }
	SortByDistance(items, func(e struct{ d float64 }) float64 { return e.d })
}

package services

import (
	"testing"

	"nasi-kandar-bot/apperr"
)

func TestHaversineDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"same point", 5.4164, 100.3327, 5.4164, 100.3327, 0},
		{"ten km north", 5.4164, 100.3327, 5.4164 + 0.0899322, 100.3327, 10},
		{"one degree of latitude", 0, 0, 1, 0, 111.19},
	}
	for _, tt := range tests {
		if got := HaversineDistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2); got != tt.want {
			t.Errorf("%s: HaversineDistanceKm = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRestaurantLocate(t *testing.T) {
	r := Restaurant{Name: "Test Kitchen", RadiusKm: 50}
	tests := []struct {
		name    string
		lat     float64
		wantKm  float64
		wantOut bool
	}{
		{"origin", 0, 0, false},
		{"ten km", 0.0899322, 10, false},
		{"just inside rounds up to radius", 0.44962483, 50, false},
		{"just outside rounds down to radius", 0.44969678, 50, true},
		{"far away", 0.56, 62.27, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Locate(Coordinates{Lat: tt.lat})
			if got != tt.wantKm {
				t.Errorf("Locate distance = %v, want %v", got, tt.wantKm)
			}
			if tt.wantOut != apperr.HasCode(err, apperr.CodeOutOfArea) {
				t.Errorf("Locate err = %v, want out of area %v", err, tt.wantOut)
			}
			if !tt.wantOut && err != nil {
				t.Errorf("Locate err = %v, want nil", err)
			}
		})
	}
}

func TestRestaurantLocateDefaultRadius(t *testing.T) {
	if _, err := (Restaurant{}).Locate(Coordinates{Lat: 0.44}); err != nil {
		t.Errorf("zero radius should default to the standard service radius, got %v", err)
	}
	if _, err := (Restaurant{}).Locate(Coordinates{Lat: 0.46}); err == nil {
		t.Error("51 km should be outside the default radius")
	}
}

func TestCoordinatesString(t *testing.T) {
	if got := (Coordinates{Lat: 5.42, Lon: 100.34}).String(); got != "5.420000, 100.340000" {
		t.Errorf("String() = %q", got)
	}
}

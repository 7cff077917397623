package services

import (
	"fmt"
	"math"

	"nasi-kandar-bot/apperr"
)

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lon)
}

// Restaurant is the single kitchen all deliveries start from.
type Restaurant struct {
	Name     string
	Origin   Coordinates
	RadiusKm float64
}

const DefaultServiceRadiusKm = 50.0

func (r Restaurant) radius() float64 {
	if r.RadiusKm <= 0 {
		return DefaultServiceRadiusKm
	}
	return r.RadiusKm
}

// Locate returns the distance from the restaurant to p in km with 2 decimals.
// The radius is checked on the exact distance, so 50.004 km is out of a 50 km area
// even though it displays as 50.00. Points outside return a CodeOutOfArea error.
func (r Restaurant) Locate(p Coordinates) (float64, error) {
	exact := greatCircleKm(r.Origin.Lat, r.Origin.Lon, p.Lat, p.Lon)
	d := roundKm(exact)
	if exact > r.radius() {
		return d, apperr.New(apperr.CodeOutOfArea,
			fmt.Sprintf("%s is %.2f km from %s, radius %.0f km", p, d, r.Name, r.radius()))
	}
	return d, nil
}

func HaversineDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return roundKm(greatCircleKm(lat1, lon1, lat2, lon2))
}

func greatCircleKm(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

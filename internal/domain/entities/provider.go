package entities

import (
	"math"
	"time"
)

// Provider represents a healthcare provider listed in the directory
// (pharmacy, hospital, clinic, practice...). Every descriptive field is optional.
type Provider struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Category  string    `json:"category" db:"category"`
	City      string    `json:"city" db:"city"`
	Address   string    `json:"address" db:"address"`
	Phone     string    `json:"phone" db:"phone"`
	Services  string    `json:"services" db:"services"`
	Hours     string    `json:"hours,omitempty" db:"hours"`
	Location  *GeoPoint `json:"location,omitempty" db:"-"`
	Photos    []string  `json:"photos,omitempty" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// GeoPoint is a latitude/longitude pair in decimal degrees
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point lies within the WGS84 coordinate ranges
func (p *GeoPoint) Valid() bool {
	if p == nil {
		return false
	}
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// RankedProvider pairs a provider with its distance from the caller.
// DistanceKm is +Inf when either side has no coordinates.
type RankedProvider struct {
	Provider   *Provider
	DistanceKm float64
}

// HasDistance reports whether a finite distance is known
func (r RankedProvider) HasDistance() bool {
	return !math.IsInf(r.DistanceKm, 0) && !math.IsNaN(r.DistanceKm)
}

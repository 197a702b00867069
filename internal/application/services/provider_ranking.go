package services

import (
	"math"
	"sort"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/pkg/utils"
)

// RankProviders orders providers by distance from origin, nearest first.
// Providers without coordinates sort last; ties keep their input order.
// With a nil origin the input order is kept and no distance is known.
func RankProviders(providers []*entities.Provider, origin *entities.GeoPoint) []entities.RankedProvider {
	ranked := make([]entities.RankedProvider, 0, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		ranked = append(ranked, entities.RankedProvider{
			Provider:   provider,
			DistanceKm: distanceFrom(origin, provider.Location),
		})
	}

	if origin == nil {
		return ranked
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

func distanceFrom(origin, location *entities.GeoPoint) float64 {
	if origin == nil || location == nil {
		return math.Inf(1)
	}
	return utils.HaversineKm(origin.Latitude, origin.Longitude, location.Latitude, location.Longitude)
}

package catalog

import (
	"context"
	"math"
	"sort"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

// Radius bounds for nearby searches, in kilometres.
const (
	DefaultRadiusKm = 5
	MinRadiusKm     = 0.1
	MaxRadiusKm     = 50
)

const earthRadiusKm = 6371

// NearbyItem is an item with its distance from the search point.
type NearbyItem struct {
	model.Item
	DistanceKm float64 `json:"distance_km"`
}

// Nearby returns located items that are not yet returned within radiusKm of
// the given point, closest first. A radius outside MinRadiusKm..MaxRadiusKm
// falls back to DefaultRadiusKm.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]NearbyItem, float64, error) {
	if err := validCoordinates(lat, lng); err != nil {
		return nil, 0, err
	}
	if math.IsNaN(radiusKm) || radiusKm < MinRadiusKm || radiusKm > MaxRadiusKm {
		radiusKm = DefaultRadiusKm
	}

	items, err := store.ListItems(ctx, s.db, store.ItemFilter{Located: true})
	if err != nil {
		return nil, 0, apperr.Wrap(err, "listing items")
	}

	nearby := []NearbyItem{}
	for _, item := range items {
		if item.Status == model.ItemReturned {
			continue
		}
		d := haversine(lat, lng, *item.Latitude, *item.Longitude)
		if d <= radiusKm {
			nearby = append(nearby, NearbyItem{Item: item, DistanceKm: math.Round(d*100) / 100})
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby, radiusKm, nil
}

// haversine returns the great-circle distance between two points in km.
func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func validCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return apperr.Validation("latitude must be between -90 and 90")
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return apperr.Validation("longitude must be between -180 and 180")
	}
	return nil
}

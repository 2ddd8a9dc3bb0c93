package geo

import (
	"time"

	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
)

// DistanceMeters great circle distance on the s2 sphere.
func DistanceMeters(a, b datastructure.Coordinate) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return angle.Radians() * earthRadiusM
}

// NearestDistanceMeters distance from p to the closest of targets, false when targets is empty.
func NearestDistanceMeters(p datastructure.Coordinate, targets []datastructure.Coordinate) (float64, bool) {
	if len(targets) == 0 {
		return 0, false
	}
	best := DistanceMeters(p, targets[0])
	for _, t := range targets[1:] {
		if d := DistanceMeters(p, t); d < best {
			best = d
		}
	}
	return best, true
}

// WalkingCost time to walk between a and b at speedKmh, rounded up to whole minutes.
func WalkingCost(a, b datastructure.Coordinate, speedKmh float64) time.Duration {
	if speedKmh <= 0 {
		speedKmh = 4.5
	}
	meters := DistanceMeters(a, b)
	minutes := meters / (speedKmh * 1000 / 60)
	whole := time.Duration(minutes)
	if float64(whole) < minutes {
		whole++
	}
	return whole * time.Minute
}

package snap

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/geo"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
)

const (
	minRadius = 300.0 // meter
	pointSize = 1e-7
)

type stationLeaf struct {
	node      graph.NodeID
	stationID string
	location  datastructure.Coordinate
	bounds    rtreego.Rect
}

func (l *stationLeaf) Bounds() rtreego.Rect {
	return l.bounds
}

type Candidate struct {
	Node           graph.NodeID
	StationID      string
	Location       datastructure.Coordinate
	DistanceMeters float64
}

// StationSnapper nearest stations of a coordinate, over an r-tree of station locations.
type StationSnapper struct {
	rtree *rtreego.Rtree
	size  int
}

func NewStationSnapper(stations []graph.Node) *StationSnapper {
	rt := rtreego.NewTree(2, 25, 50)
	size := 0
	for _, s := range stations {
		rect, err := rtreego.NewRect(rtreego.Point{s.Location.Lat, s.Location.Lon}, []float64{pointSize, pointSize})
		if err != nil {
			continue
		}
		rt.Insert(&stationLeaf{node: s.ID, stationID: s.StationID, location: s.Location, bounds: rect})
		size++
	}
	return &StationSnapper{rtree: rt, size: size}
}

func (s *StationSnapper) Size() int {
	return s.size
}

// SnapToStations up to k stations within radiusMeters of p, nearest first. k <= 0 means no limit.
func (s *StationSnapper) SnapToStations(p datastructure.Coordinate, radiusMeters float64, k int) []Candidate {
	if radiusMeters <= 0 {
		radiusMeters = minRadius
	}
	radiusKm := radiusMeters / 1000
	upperRightLat, upperRightLon := geo.GetDestinationPoint(p.Lat, p.Lon, 45, radiusKm*math.Sqrt2)
	lowerLeftLat, lowerLeftLon := geo.GetDestinationPoint(p.Lat, p.Lon, 225, radiusKm*math.Sqrt2)

	bound, err := rtreego.NewRect(rtreego.Point{lowerLeftLat, lowerLeftLon},
		[]float64{upperRightLat - lowerLeftLat, upperRightLon - lowerLeftLon})
	if err != nil {
		return nil
	}

	candidates := make([]Candidate, 0)
	for _, item := range s.rtree.SearchIntersect(bound) {
		leaf := item.(*stationLeaf)
		dist := geo.DistanceMeters(p, leaf.location)
		if dist > radiusMeters {
			continue
		}
		candidates = append(candidates, Candidate{
			Node:           leaf.node,
			StationID:      leaf.stationID,
			Location:       leaf.location,
			DistanceMeters: dist,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceMeters != candidates[j].DistanceMeters {
			return candidates[i].DistanceMeters < candidates[j].DistanceMeters
		}
		return candidates[i].StationID < candidates[j].StationID
	})
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

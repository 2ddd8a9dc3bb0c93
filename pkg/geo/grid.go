package geo

import (
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/uber/h3-go/v4"
)

const (
	DefaultGridResolution = 7
	DefaultMaxGridRing    = 24
)

// Grid coarse h3 cells of stations, precomputed once per network.
type Grid struct {
	resolution int
	stations   map[string]h3.Cell
}

func NewGrid(resolution int, stations map[string]datastructure.Coordinate) *Grid {
	if resolution <= 0 {
		resolution = DefaultGridResolution
	}
	g := &Grid{
		resolution: resolution,
		stations:   make(map[string]h3.Cell, len(stations)),
	}
	for id, loc := range stations {
		g.stations[id] = g.CellFor(loc)
	}
	return g
}

func (g *Grid) Resolution() int {
	return g.resolution
}

func (g *Grid) CellFor(loc datastructure.Coordinate) h3.Cell {
	return h3.LatLngToCell(h3.NewLatLng(loc.Lat, loc.Lon), g.resolution)
}

func (g *Grid) StationCell(stationID string) (h3.Cell, bool) {
	cell, ok := g.stations[stationID]
	return cell, ok
}

// CellDistances ring distance of every cell within maxRing of a set of destination cells.
type CellDistances struct {
	rings   map[h3.Cell]int
	maxRing int
}

func (g *Grid) DistancesFrom(destinations []h3.Cell, maxRing int) *CellDistances {
	if maxRing <= 0 {
		maxRing = DefaultMaxGridRing
	}
	d := &CellDistances{rings: make(map[h3.Cell]int), maxRing: maxRing}
	for _, dest := range destinations {
		for k := 0; k <= maxRing; k++ {
			for _, cell := range h3.GridDisk(dest, k) {
				if ring, ok := d.rings[cell]; !ok || k < ring {
					d.rings[cell] = k
				}
			}
		}
	}
	return d
}

// SquaredDistance squared ring distance, cells further than maxRing count as maxRing+1.
func (d *CellDistances) SquaredDistance(cell h3.Cell) int {
	ring, ok := d.rings[cell]
	if !ok {
		ring = d.maxRing + 1
	}
	return ring * ring
}

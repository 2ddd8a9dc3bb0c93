package selector

import (
	"math"

	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/geo"
)

type scored struct {
	branch   Branch
	distance float64
	seq      uint64
}

// less orders branches at the same node by clock. across nodes, begun branches come before
// not begun ones and are ordered by distance, the clock breaks remaining ties.
func less(a, b scored) bool {
	ja, jb := a.branch.Journey(), b.branch.Journey()
	if a.branch.Node() == b.branch.Node() {
		return clockThenSeq(a, b)
	}
	aBegun, bBegun := ja.HasBegunJourney(), jb.HasBegunJourney()
	switch {
	case aBegun && bBegun:
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		return clockThenSeq(a, b)
	case aBegun != bBegun:
		return aBegun
	}
	return clockThenSeq(a, b)
}

func clockThenSeq(a, b scored) bool {
	ca, cb := a.branch.Journey().JourneyClock(), b.branch.Journey().JourneyClock()
	if ca != cb {
		return ca.IsBefore(cb)
	}
	return a.seq < b.seq
}

// BestFirstSelector fully expands the branch it returned last, then continues from the best
// branch of the frontier.
type BestFirstSelector struct {
	expander Expander
	root     Branch
	started  bool
	last     Branch
	frontier *datastructure.MinHeap[scored]
	distance func(Branch) float64
	seq      uint64
}

func newBestFirst(expander Expander, root Branch, distance func(Branch) float64) *BestFirstSelector {
	return &BestFirstSelector{
		expander: expander,
		root:     root,
		frontier: datastructure.NewMinHeap[scored](less),
		distance: distance,
	}
}

// NewBreadthFirstByDistance best first by great circle distance from a branch's position to the
// nearest destination.
func NewBreadthFirstByDistance(expander Expander, root Branch, destinations []datastructure.Coordinate) *BestFirstSelector {
	return newBestFirst(expander, root, func(b Branch) float64 {
		pos := b.Journey().ApproxPosition()
		if pos.Location.IsZero() {
			return math.MaxFloat64
		}
		d, ok := geo.NearestDistanceMeters(pos.Location, destinations)
		if !ok {
			return 0
		}
		return d
	})
}

// NewGridSelector best first by squared h3 ring distance from a branch's cell to the destination cells.
func NewGridSelector(expander Expander, root Branch, grid *geo.Grid, cells *geo.CellDistances) *BestFirstSelector {
	return newBestFirst(expander, root, func(b Branch) float64 {
		pos := b.Journey().ApproxPosition()
		if cell, ok := grid.StationCell(pos.StationID); ok {
			return float64(cells.SquaredDistance(cell))
		}
		if pos.Location.IsZero() {
			return math.MaxFloat64
		}
		return float64(cells.SquaredDistance(grid.CellFor(pos.Location)))
	})
}

func (s *BestFirstSelector) push(b Branch) {
	s.frontier.Insert(scored{branch: b, distance: s.distance(b), seq: s.seq})
	s.seq++
}

func (s *BestFirstSelector) Next() (Branch, bool, error) {
	if !s.started {
		s.started = true
		s.last = s.root
		return s.root, true, nil
	}
	if s.last != nil {
		for {
			child, ok, err := s.expander.Expand(s.last)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				break
			}
			s.push(child)
		}
		s.expander.Release(s.last)
		s.last = nil
	}
	item, ok := s.frontier.ExtractMin()
	if !ok {
		return nil, false, nil
	}
	s.last = item.branch
	return item.branch, true, nil
}

func (s *BestFirstSelector) FrontierSize() int {
	return s.frontier.Size()
}

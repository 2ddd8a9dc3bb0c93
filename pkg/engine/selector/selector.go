package selector

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/engine/journey"
	"github.com/lintang-b-s/transitplanner/pkg/geo"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
)

var (
	ErrUnknownKind = errors.New("unknown branch selector")
)

// Branch a partial journey: the node it stands at and its journey so far.
type Branch interface {
	Node() graph.NodeID
	Journey() journey.View
}

// Expander produces the children of a branch one at a time.
type Expander interface {
	// Expand next child of b, false once b has no children left.
	Expand(b Branch) (Branch, bool, error)
	// Release b will not be expanded again.
	Release(b Branch)
}

// BranchSelector decides which branch the search continues from.
type BranchSelector interface {
	Next() (Branch, bool, error)
}

type Kind string

const (
	DepthFirst             Kind = "depth_first"
	BreadthFirstByDistance Kind = "breadth_first"
	GridBased              Kind = "grid"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case DepthFirst, BreadthFirstByDistance, GridBased:
		return k, nil
	case "":
		return BreadthFirstByDistance, nil
	}
	return "", errors.Wrapf(ErrUnknownKind, "%q", s)
}

// Target where the query is heading, used by the distance based selectors.
type Target struct {
	Locations []datastructure.Coordinate
	Grid      *geo.Grid
	Cells     *geo.CellDistances
}

func New(kind Kind, expander Expander, root Branch, target Target) (BranchSelector, error) {
	switch kind {
	case DepthFirst:
		return NewDepthFirst(expander, root), nil
	case BreadthFirstByDistance, "":
		return NewBreadthFirstByDistance(expander, root, target.Locations), nil
	case GridBased:
		if target.Grid == nil || target.Cells == nil {
			return nil, errors.New("grid selector needs a grid and destination cells")
		}
		return NewGridSelector(expander, root, target.Grid, target.Cells), nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
}

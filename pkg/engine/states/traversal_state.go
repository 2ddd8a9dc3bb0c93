package states

import (
	"time"

	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/engine/journey"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
)

type Index int32

const NoParent Index = -1

// TraversalState one step of a branch: a graph node reached in a given state, with the
// relationships left to expand from it.
type TraversalState struct {
	stateType StateType
	node      graph.Node
	index     Index
	parent    Index
	via       graph.Relationship

	lastCost  time.Duration
	totalCost time.Duration

	outbound []graph.Relationship
	cursor   int

	tripID    string
	serviceID string
	route     routes.RouteHandle
	hasRoute  bool
	mode      datastructure.TransportMode

	journey *journey.JourneyState
}

func (s *TraversalState) Type() StateType {
	return s.stateType
}

func (s *TraversalState) Node() graph.NodeID {
	return s.node.ID
}

func (s *TraversalState) GraphNode() graph.Node {
	return s.node
}

func (s *TraversalState) Index() Index {
	return s.index
}

func (s *TraversalState) Parent() Index {
	return s.parent
}

// Via relationship this state was reached through.
func (s *TraversalState) Via() graph.Relationship {
	return s.via
}

func (s *TraversalState) LastCost() time.Duration {
	return s.lastCost
}

func (s *TraversalState) TotalCost() time.Duration {
	return s.totalCost
}

func (s *TraversalState) TripID() string {
	return s.tripID
}

func (s *TraversalState) ServiceID() string {
	return s.serviceID
}

// Route handle of the vehicle being ridden, false when not on one.
func (s *TraversalState) Route() (routes.RouteHandle, bool) {
	return s.route, s.hasRoute
}

func (s *TraversalState) Mode() datastructure.TransportMode {
	return s.mode
}

func (s *TraversalState) Journey() journey.View {
	return s.journey
}

func (s *TraversalState) JourneyState() *journey.JourneyState {
	return s.journey
}

// NextOutbound the next relationship to expand, false once all are taken.
func (s *TraversalState) NextOutbound() (graph.Relationship, bool) {
	if s.cursor >= len(s.outbound) {
		return graph.Relationship{}, false
	}
	rel := s.outbound[s.cursor]
	s.cursor++
	return rel, true
}

func (s *TraversalState) Remaining() int {
	return len(s.outbound) - s.cursor
}

func (s *TraversalState) Outbound() []graph.Relationship {
	out := make([]graph.Relationship, len(s.outbound))
	copy(out, s.outbound)
	return out
}

func (s *TraversalState) IsDestination() bool {
	return s.stateType == Destination
}

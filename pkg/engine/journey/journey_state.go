package journey

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
)

var (
	ErrAlreadyOnBoard = errors.New("already on board")
	ErrNotOnBoard     = errors.New("not on board")
	ErrAlreadyOnTrip  = errors.New("already on a trip")
)

// Position last located point of a journey.
type Position struct {
	StationID string
	Location  datastructure.Coordinate
}

// View read only accessors of a journey state.
type View interface {
	HasBegunJourney() bool
	JourneyClock() datastructure.TramTime
	TotalCost() time.Duration
	ApproxPosition() Position
	NumberOfChanges() int
	NumberOfWalkingConnections() int
	OnBoard() bool
	CurrentTrip() string
	CurrentMode() datastructure.TransportMode
}

// JourneyState progress of one branch. transitions return modified copies, a state is never
// mutated once shared. slices are copy on append, siblings never see each other's appends.
type JourneyState struct {
	queryTime datastructure.TramTime
	totalCost time.Duration
	clock     datastructure.TramTime
	hasBegun  bool

	onBoard     bool
	mode        datastructure.TransportMode
	currentTrip string

	tripsDone    []string
	routes       []routes.RouteHandle
	interchanges int

	walkingConnections   int
	neighbourConnections int
	diversions           int
	walking              bool

	position Position
	seen     []graph.NodeID
}

var _ View = (*JourneyState)(nil)

func NewJourneyState(queryTime datastructure.TramTime) *JourneyState {
	return &JourneyState{
		queryTime: queryTime,
		clock:     queryTime,
	}
}

func (s *JourneyState) clone() *JourneyState {
	c := *s
	return &c
}

func appendShared[T any](s []T, v T) []T {
	return append(s[:len(s):len(s)], v)
}

// UpdateTotalCost moves the clock to queryTime + total. total never decreases.
func (s *JourneyState) UpdateTotalCost(total time.Duration) *JourneyState {
	if total < s.totalCost {
		panic(errors.AssertionFailedf("total cost moved backwards from %s to %s", s.totalCost, total))
	}
	c := s.clone()
	c.totalCost = total
	c.clock = s.queryTime.Plus(total)
	return c
}

func (s *JourneyState) Board(mode datastructure.TransportMode, route routes.RouteHandle, atInterchange bool) (*JourneyState, error) {
	if s.onBoard {
		return nil, errors.Wrapf(ErrAlreadyOnBoard, "boarding %s", mode)
	}
	c := s.clone()
	c.onBoard = true
	c.mode = mode
	c.hasBegun = true
	c.routes = appendShared(s.routes, route)
	if atInterchange && len(s.routes) > 0 {
		c.interchanges++
	}
	return c, nil
}

func (s *JourneyState) BeginTrip(tripID string) (*JourneyState, error) {
	if s.currentTrip != "" {
		return nil, errors.Wrapf(ErrAlreadyOnTrip, "beginning %s while on %s", tripID, s.currentTrip)
	}
	c := s.clone()
	c.currentTrip = tripID
	return c, nil
}

func (s *JourneyState) Leave(mode datastructure.TransportMode) (*JourneyState, error) {
	if !s.onBoard {
		return nil, errors.Wrapf(ErrNotOnBoard, "leaving %s", mode)
	}
	c := s.clone()
	c.onBoard = false
	c.mode = datastructure.NotSetMode
	if s.currentTrip != "" {
		c.tripsDone = appendShared(s.tripsDone, s.currentTrip)
		c.currentTrip = ""
	}
	return c, nil
}

func (s *JourneyState) BeginWalk() *JourneyState {
	c := s.clone()
	c.walking = true
	c.hasBegun = true
	c.walkingConnections++
	c.mode = datastructure.Walk
	return c
}

func (s *JourneyState) EndWalk() *JourneyState {
	c := s.clone()
	c.walking = false
	if c.mode == datastructure.Walk {
		c.mode = datastructure.NotSetMode
	}
	return c
}

func (s *JourneyState) ToNeighbour() *JourneyState {
	c := s.clone()
	c.hasBegun = true
	c.neighbourConnections++
	return c
}

func (s *JourneyState) BeginDiversion() *JourneyState {
	c := s.clone()
	c.diversions++
	return c
}

// Visit records a location node and moves the approximate position to it.
func (s *JourneyState) Visit(node graph.NodeID, position Position) *JourneyState {
	c := s.clone()
	c.seen = appendShared(s.seen, node)
	c.position = position
	return c
}

func (s *JourneyState) HasVisited(node graph.NodeID) bool {
	for _, seen := range s.seen {
		if seen == node {
			return true
		}
	}
	return false
}

func (s *JourneyState) AlreadyDeparted(tripID string) bool {
	for _, done := range s.tripsDone {
		if done == tripID {
			return true
		}
	}
	return false
}

func (s *JourneyState) QueryTime() datastructure.TramTime {
	return s.queryTime
}

func (s *JourneyState) TotalCost() time.Duration {
	return s.totalCost
}

func (s *JourneyState) JourneyClock() datastructure.TramTime {
	return s.clock
}

func (s *JourneyState) HasBegunJourney() bool {
	return s.hasBegun
}

func (s *JourneyState) OnBoard() bool {
	return s.onBoard
}

func (s *JourneyState) IsWalking() bool {
	return s.walking
}

func (s *JourneyState) CurrentTrip() string {
	return s.currentTrip
}

func (s *JourneyState) CurrentMode() datastructure.TransportMode {
	return s.mode
}

// NumberOfChanges vehicles boarded after the first one.
func (s *JourneyState) NumberOfChanges() int {
	if len(s.routes) == 0 {
		return 0
	}
	return len(s.routes) - 1
}

func (s *JourneyState) NumberOfInterchanges() int {
	return s.interchanges
}

func (s *JourneyState) NumberOfWalkingConnections() int {
	return s.walkingConnections
}

func (s *JourneyState) NumberOfNeighbourConnections() int {
	return s.neighbourConnections
}

func (s *JourneyState) NumberOfDiversions() int {
	return s.diversions
}

func (s *JourneyState) RoutesBoarded() []routes.RouteHandle {
	return s.routes[:len(s.routes):len(s.routes)]
}

func (s *JourneyState) TripsDone() []string {
	return s.tripsDone[:len(s.tripsDone):len(s.tripsDone)]
}

func (s *JourneyState) ApproxPosition() Position {
	return s.position
}

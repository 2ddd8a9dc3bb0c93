package states

import (
	"time"

	"github.com/lintang-b-s/transitplanner/pkg/graph"
)

type towardsFunc func(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error)

type transitionKey struct {
	from StateType
	to   StateType
}

// TransitionTable registered (from, to) state transitions and the function building each successor.
type TransitionTable struct {
	towards map[transitionKey]towardsFunc
}

func NewTransitionTable() *TransitionTable {
	t := &TransitionTable{towards: make(map[transitionKey]towardsFunc)}

	t.register(PlatformStation, towardsStationFromStart, NotStarted)
	t.register(PlatformStation, towardsStationFromWalk, Walking)
	t.register(PlatformStation, towardsStationFromPlatform, Platform)
	t.register(PlatformStation, towardsNeighbourStation, NoPlatformStation, PlatformStation)
	t.register(PlatformStation, towardsStationFromGroup, GroupedStation)

	t.register(NoPlatformStation, towardsStationFromStart, NotStarted)
	t.register(NoPlatformStation, towardsStationFromWalk, Walking)
	t.register(NoPlatformStation, towardsNeighbourStation, NoPlatformStation, PlatformStation)
	t.register(NoPlatformStation, towardsStationFromRouteStation, RouteStationOnTrip, RouteStationEndTrip)
	t.register(NoPlatformStation, towardsStationFromGroup, GroupedStation)

	t.register(Platform, towardsPlatformFromStation, PlatformStation)
	t.register(Platform, towardsPlatformFromRouteStation, RouteStationOnTrip, RouteStationEndTrip)

	t.register(JustBoarded, towardsJustBoarded, Platform, NoPlatformStation)

	t.register(Service, towardsServiceFromBoarding, JustBoarded)
	t.register(Service, towardsServiceOnTrip, RouteStationOnTrip)

	t.register(Hour, towardsHour, Service)
	t.register(Minute, towardsMinute, Hour)

	t.register(RouteStationOnTrip, towardsRouteStationOnTrip, Minute)
	t.register(RouteStationEndTrip, towardsRouteStationEndTrip, Minute)

	t.register(Walking, towardsWalkFromStart, NotStarted)
	t.register(Walking, towardsWalkFromStation, PlatformStation, NoPlatformStation)

	t.register(GroupedStation, towardsGroupFromStart, NotStarted)
	t.register(GroupedStation, towardsGroupFromStation, PlatformStation, NoPlatformStation)

	t.register(Destination, towardsDestination, PlatformStation, NoPlatformStation, Walking, GroupedStation)
	return t
}

func (t *TransitionTable) register(to StateType, fn towardsFunc, from ...StateType) {
	for _, f := range from {
		t.towards[transitionKey{from: f, to: to}] = fn
	}
}

func (t *TransitionTable) lookup(from, to StateType) (towardsFunc, error) {
	fn, ok := t.towards[transitionKey{from: from, to: to}]
	if !ok {
		return nil, &NextStateNotFoundError{From: from, To: to}
	}
	return fn, nil
}

func (t *TransitionTable) IsRegistered(from, to StateType) bool {
	_, ok := t.towards[transitionKey{from: from, to: to}]
	return ok
}

// Check returns the typed error lookups of (from, to) fail with, nil when registered.
func (t *TransitionTable) Check(from, to StateType) error {
	_, err := t.lookup(from, to)
	return err
}

// Predecessors registered predecessors of to, in state type order.
func (t *TransitionTable) Predecessors(to StateType) []StateType {
	from := make([]StateType, 0)
	for _, f := range AllStateTypes() {
		if t.IsRegistered(f, to) {
			from = append(from, f)
		}
	}
	return from
}

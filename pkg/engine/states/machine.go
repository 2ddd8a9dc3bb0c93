package states

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/engine/journey"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
)

// Machine applies registered transitions to the states of one search.
type Machine struct {
	table *TransitionTable
	ops   *TraversalOps
	arena *Arena
}

func NewMachine(table *TransitionTable, ops *TraversalOps, arena *Arena) *Machine {
	return &Machine{table: table, ops: ops, arena: arena}
}

func (m *Machine) Arena() *Arena {
	return m.arena
}

func (m *Machine) Ops() *TraversalOps {
	return m.ops
}

// Root NotStarted state whose outbound relationships lead to each origin.
func (m *Machine) Root(queryTime datastructure.TramTime, origins []graph.NodeID) *TraversalState {
	outbound := make([]graph.Relationship, 0, len(origins))
	for _, o := range origins {
		outbound = append(outbound, graph.Relationship{Type: graph.Origin, From: graph.NoNode, To: o})
	}
	root := &TraversalState{
		stateType: NotStarted,
		node:      graph.Node{ID: graph.NoNode},
		parent:    NoParent,
		outbound:  outbound,
		journey:   journey.NewJourneyState(queryTime),
	}
	m.arena.Add(root)
	return root
}

// EdgeCost cost of following rel from s. waits for a departure depend on the clock and may be
// negative when the departure has gone.
func (m *Machine) EdgeCost(s *TraversalState, rel graph.Relationship) time.Duration {
	if rel.Type == graph.ToMinute {
		return s.journey.JourneyClock().Between(rel.Time)
	}
	return rel.Cost
}

// Next builds and stores the successor of from reached through rel. a successor at a
// destination node is returned as its Destination state.
func (m *Machine) Next(from *TraversalState, rel graph.Relationship, node graph.Node) (*TraversalState, error) {
	cost := m.EdgeCost(from, rel)
	if cost < 0 {
		return nil, errors.AssertionFailedf("negative cost %s following %s into node %d", cost, rel.Type, node.ID)
	}
	to, err := m.TargetState(from, node)
	if err != nil {
		return nil, err
	}
	fn, err := m.table.lookup(from.stateType, to)
	if err != nil {
		return nil, err
	}
	next, err := fn(m, to, from, rel, node, cost)
	if err != nil {
		return nil, err
	}
	m.arena.Add(next)

	if !to.endsAtDestination() || !m.ops.IsDestination(node.ID) || !next.journey.HasBegunJourney() {
		return next, nil
	}
	fn, err = m.table.lookup(to, Destination)
	if err != nil {
		m.arena.Release(next.index)
		return nil, err
	}
	dest, err := fn(m, Destination, next, rel, node, 0)
	if err != nil {
		m.arena.Release(next.index)
		return nil, err
	}
	m.arena.Add(dest)
	m.arena.Release(next.index)
	return dest, nil
}

// TargetState state a node is entered in from s, by its labels.
func (m *Machine) TargetState(from *TraversalState, node graph.Node) (StateType, error) {
	role := node.Labels.Roles()
	flags := node.Labels &^ graph.RoleLabels
	if role.Count() != 1 {
		return 0, &UnexpectedLabelsError{Node: node.ID, Labels: node.Labels}
	}

	var allowed graph.Labels
	switch role {
	case graph.Station:
		allowed = graph.Interchange | graph.HasPlatforms
	case graph.RouteStation:
		allowed = graph.Interchange
	}
	if flags&^allowed != 0 {
		return 0, &UnexpectedLabelsError{Node: node.ID, Labels: node.Labels}
	}

	switch role {
	case graph.Station:
		if node.Labels.Has(graph.HasPlatforms) {
			return PlatformStation, nil
		}
		return NoPlatformStation, nil
	case graph.Platform:
		return Platform, nil
	case graph.RouteStation:
		if from.stateType != Minute {
			return JustBoarded, nil
		}
		onTrip, err := m.ops.hasServiceOutbound(node.ID, from.serviceID)
		if err != nil {
			return 0, errors.Wrapf(err, "resolving route station %d", node.ID)
		}
		if onTrip {
			return RouteStationOnTrip, nil
		}
		return RouteStationEndTrip, nil
	case graph.Service:
		return Service, nil
	case graph.Hour:
		return Hour, nil
	case graph.Minute:
		return Minute, nil
	case graph.Grouped:
		return GroupedStation, nil
	case graph.QueryNode:
		return Walking, nil
	}
	return 0, &UnexpectedLabelsError{Node: node.ID, Labels: node.Labels}
}

func routeIDOf(node graph.Node) routes.RouteID {
	return routes.RouteID(node.RouteID)
}

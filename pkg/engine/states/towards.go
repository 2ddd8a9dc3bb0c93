package states

import (
	"slices"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/engine/journey"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
)

func (m *Machine) advance(to StateType, from *TraversalState, rel graph.Relationship, node graph.Node,
	cost time.Duration) *TraversalState {
	total := from.totalCost + cost
	return &TraversalState{
		stateType: to,
		node:      node,
		parent:    from.index,
		via:       rel,
		lastCost:  cost,
		totalCost: total,
		tripID:    from.tripID,
		serviceID: from.serviceID,
		route:     from.route,
		hasRoute:  from.hasRoute,
		mode:      from.mode,
		journey:   from.journey.UpdateTotalCost(total),
	}
}

func (s *TraversalState) visit() {
	s.journey = s.journey.Visit(s.node.ID, journey.Position{StationID: s.node.StationID, Location: s.node.Location})
}

func (s *TraversalState) alight(from *TraversalState, rel graph.Relationship) error {
	left, err := s.journey.Leave(from.mode)
	if err != nil {
		return err
	}
	if rel.Type == graph.DiversionDepart {
		left = left.BeginDiversion()
	}
	s.journey = left
	s.tripID = ""
	s.serviceID = ""
	s.hasRoute = false
	s.mode = datastructure.NotSetMode
	return nil
}

// outbound relationships of s grouped by type, in the order of groups. relationships ending
// at exclude are left out.
func (m *Machine) setOutbound(s *TraversalState, exclude graph.NodeID, groups ...[]graph.RelationshipType) error {
	out := make([]graph.Relationship, 0)
	for _, types := range groups {
		rels, err := m.ops.outgoingExcept(s.node.ID, exclude, types...)
		if err != nil {
			return errors.Wrapf(err, "expanding %s at node %d", s.stateType, s.node.ID)
		}
		out = append(out, rels...)
	}
	s.outbound = out
	return nil
}

func relTypes(t ...graph.RelationshipType) []graph.RelationshipType {
	return t
}

func towardsStationFromStart(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	s.visit()
	err := m.setOutbound(s, graph.NoNode, relTypes(graph.WalksFromStation), relTypes(graph.Neighbour),
		relTypes(graph.GroupedToParent), boardingTypes(node))
	return s, err
}

func towardsStationFromWalk(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	s.journey = s.journey.EndWalk()
	s.mode = datastructure.NotSetMode
	s.visit()
	err := m.setOutbound(s, graph.NoNode, boardingTypes(node), relTypes(graph.Neighbour))
	return s, err
}

func towardsNeighbourStation(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	s.journey = s.journey.ToNeighbour()
	s.visit()
	err := m.setOutbound(s, graph.NoNode, boardingTypes(node), relTypes(graph.GroupedToParent),
		relTypes(graph.WalksFromStation))
	return s, err
}

func towardsStationFromRouteStation(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	if err := s.alight(from, rel); err != nil {
		return nil, err
	}
	s.visit()
	exclude := graph.NoNode
	if from.stateType == RouteStationOnTrip {
		exclude = from.node.ID
	}
	err := m.setOutbound(s, exclude, relTypes(graph.WalksFromStation), relTypes(graph.Neighbour),
		relTypes(graph.GroupedToParent), boardingTypes(node))
	return s, err
}

func towardsStationFromGroup(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	s.visit()
	err := m.setOutbound(s, graph.NoNode, boardingTypes(node), relTypes(graph.Neighbour), relTypes(graph.WalksFromStation))
	return s, err
}

func towardsStationFromPlatform(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	s.visit()
	err := m.setOutbound(s, from.node.ID, relTypes(graph.WalksFromStation), relTypes(graph.Neighbour),
		relTypes(graph.GroupedToParent), relTypes(graph.EnterPlatform))
	return s, err
}

func towardsPlatformFromStation(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	s.visit()
	err := m.setOutbound(s, graph.NoNode, relTypes(graph.Board, graph.InterchangeBoard))
	return s, err
}

func towardsPlatformFromRouteStation(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	if err := s.alight(from, rel); err != nil {
		return nil, err
	}
	s.visit()
	err := m.setOutbound(s, from.node.ID, relTypes(graph.LeavePlatform), relTypes(graph.Board, graph.InterchangeBoard))
	return s, err
}

func towardsJustBoarded(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	handle, err := m.ops.routeIndex.IndexFor(routeIDOf(node))
	if err != nil {
		return nil, errors.Wrapf(err, "boarding at node %d", node.ID)
	}
	s := m.advance(to, from, rel, node, cost)
	boarded, err := s.journey.Board(node.Mode, handle, rel.Type == graph.InterchangeBoard)
	if err != nil {
		return nil, err
	}
	s.journey = boarded
	s.route = handle
	s.hasRoute = true
	s.mode = node.Mode
	err = m.setOutbound(s, graph.NoNode, relTypes(graph.ToService))
	return s, err
}

func towardsServiceFromBoarding(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	s.serviceID = node.ServiceID
	if err := m.setOutbound(s, graph.NoNode, relTypes(graph.ToHour)); err != nil {
		return nil, err
	}
	sortRollingHours(s.outbound, s.journey.JourneyClock().Hour())
	return s, nil
}

func towardsServiceOnTrip(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	if err := m.setOutbound(s, graph.NoNode, relTypes(graph.ToHour)); err != nil {
		return nil, err
	}
	s.outbound = slices.DeleteFunc(s.outbound, func(r graph.Relationship) bool {
		return r.ServiceID != from.serviceID
	})
	sortRollingHours(s.outbound, s.journey.JourneyClock().Hour())
	return s, nil
}

// sortRollingHours hours from current onwards first, then the earlier ones.
func sortRollingHours(rels []graph.Relationship, current int) {
	const span = 48
	key := func(hour int) int {
		if hour >= current {
			return hour - current
		}
		return hour - current + span
	}
	sort.SliceStable(rels, func(i, j int) bool {
		return key(rels[i].Hour) < key(rels[j].Hour)
	})
}

func towardsHour(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	if err := m.setOutbound(s, graph.NoNode, relTypes(graph.ToMinute)); err != nil {
		return nil, err
	}
	if trip := s.journey.CurrentTrip(); trip != "" {
		s.outbound = slices.DeleteFunc(s.outbound, func(r graph.Relationship) bool {
			return r.TripID != trip
		})
	}
	sort.SliceStable(s.outbound, func(i, j int) bool {
		return s.outbound[i].Time.IsBefore(s.outbound[j].Time)
	})
	return s, nil
}

func towardsMinute(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	if node.TripID == "" {
		return nil, errors.Wrapf(ErrMissingTripID, "node %d", node.ID)
	}
	s := m.advance(to, from, rel, node, cost)
	if s.journey.CurrentTrip() == "" {
		onTrip, err := s.journey.BeginTrip(node.TripID)
		if err != nil {
			return nil, err
		}
		s.journey = onTrip
	}
	s.tripID = s.journey.CurrentTrip()
	s.serviceID = node.ServiceID
	if err := m.setOutbound(s, graph.NoNode, relTypes(graph.TramGoesTo)); err != nil {
		return nil, err
	}
	s.outbound = slices.DeleteFunc(s.outbound, func(r graph.Relationship) bool {
		return r.TripID != s.tripID
	})
	return s, nil
}

func towardsRouteStationOnTrip(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	if err := m.setOutbound(s, graph.NoNode, departTypes); err != nil {
		return nil, err
	}
	if m.ops.changeAtInterchangeOnly {
		s.outbound = slices.DeleteFunc(s.outbound, func(r graph.Relationship) bool {
			return r.Type != graph.InterchangeDepart && !m.ops.IsDestination(r.To)
		})
	}
	services, err := m.ops.outgoing(node.ID, graph.ToService)
	if err != nil {
		return nil, errors.Wrapf(err, "expanding %s at node %d", to, node.ID)
	}
	for _, r := range services {
		if r.ServiceID == s.serviceID {
			s.outbound = append(s.outbound, r)
		}
	}
	return s, nil
}

func towardsRouteStationEndTrip(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	err := m.setOutbound(s, graph.NoNode, departTypes)
	return s, err
}

func towardsWalkFromStart(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	s.journey = s.journey.BeginWalk()
	s.mode = datastructure.Walk
	s.visit()
	err := m.setOutbound(s, graph.NoNode, relTypes(graph.WalksToStation))
	return s, err
}

func towardsWalkFromStation(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	s.journey = s.journey.BeginWalk()
	s.mode = datastructure.Walk
	s.visit()
	return s, nil
}

func towardsGroupFromStart(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	s.visit()
	err := m.setOutbound(s, graph.NoNode, relTypes(graph.GroupedToChild))
	return s, err
}

func towardsGroupFromStation(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	s := m.advance(to, from, rel, node, cost)
	s.visit()
	err := m.setOutbound(s, from.node.ID, relTypes(graph.GroupedToChild))
	return s, err
}

func towardsDestination(m *Machine, to StateType, from *TraversalState, rel graph.Relationship,
	node graph.Node, cost time.Duration) (*TraversalState, error) {
	return m.advance(to, from, rel, node, cost), nil
}

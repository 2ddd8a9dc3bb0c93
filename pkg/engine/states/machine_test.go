package states

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
	"github.com/lintang-b-s/transitplanner/pkg/network"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	tx      graph.Transaction
	index   *routes.RouteIndex
	machine *Machine
}

func newFixture(t *testing.T, changeAtInterchangeOnly bool) *fixture {
	t.Helper()
	n := network.ThreeRouteFixture()
	g, err := network.BuildGraph(n)
	require.NoError(t, err)
	index, err := routes.NewRouteIndex(n)
	require.NoError(t, err)
	tx, err := g.BeginTx()
	require.NoError(t, err)

	e, ok := tx.LocationNode("E")
	require.True(t, ok)
	ops := NewTraversalOps(tx, index, network.FixtureDate, []graph.NodeID{e}, changeAtInterchangeOnly)
	return &fixture{tx: tx, index: index, machine: NewMachine(NewTransitionTable(), ops, NewArena(64))}
}

func (f *fixture) root(t *testing.T, origin string, at datastructure.TramTime) *TraversalState {
	t.Helper()
	id, ok := f.tx.LocationNode(origin)
	require.True(t, ok)
	return f.machine.Root(at, []graph.NodeID{id})
}

// follow takes the first remaining outbound relationship of relType.
func (f *fixture) follow(t *testing.T, s *TraversalState, relType graph.RelationshipType) *TraversalState {
	t.Helper()
	for {
		rel, ok := s.NextOutbound()
		require.True(t, ok, "%s at node %d has no %s outbound", s.Type(), s.Node(), relType)
		if rel.Type != relType {
			continue
		}
		node, err := f.tx.Node(rel.To)
		require.NoError(t, err)
		next, err := f.machine.Next(s, rel, node)
		require.NoError(t, err)
		return next
	}
}

func TestMachineRidesFixtureToDestination(t *testing.T) {
	f := newFixture(t, false)
	s := f.root(t, "A", datastructure.NewTramTime(7, 55))
	assert.Equal(t, NotStarted, s.Type())

	steps := []struct {
		rel  graph.RelationshipType
		want StateType
	}{
		{graph.Origin, NoPlatformStation},
		{graph.Board, JustBoarded},
		{graph.ToService, Service},
		{graph.ToHour, Hour},
		{graph.ToMinute, Minute},
		{graph.TramGoesTo, RouteStationOnTrip},
		{graph.ToService, Service},
		{graph.ToHour, Hour},
		{graph.ToMinute, Minute},
		{graph.TramGoesTo, RouteStationEndTrip},
		{graph.InterchangeDepart, Platform},
		{graph.LeavePlatform, PlatformStation},
		{graph.EnterPlatform, Platform},
		{graph.InterchangeBoard, JustBoarded},
		{graph.ToService, Service},
		{graph.ToHour, Hour},
		{graph.ToMinute, Minute},
		{graph.TramGoesTo, RouteStationEndTrip},
		{graph.InterchangeDepart, NoPlatformStation},
		{graph.InterchangeBoard, JustBoarded},
		{graph.ToService, Service},
		{graph.ToHour, Hour},
		{graph.ToMinute, Minute},
		{graph.TramGoesTo, RouteStationEndTrip},
		{graph.Depart, Destination},
	}

	var stations []string
	for i, step := range steps {
		s = f.follow(t, s, step.rel)
		require.Equal(t, step.want, s.Type(), "step %d via %s", i, step.rel)
		if s.Type() == Minute && s.JourneyState().CurrentTrip() == "t1" && s.LastCost() > 0 {
			stations = append(stations, s.GraphNode().StationID)
		}
	}

	j := s.JourneyState()
	assert.True(t, s.IsDestination())
	assert.Equal(t, datastructure.NewTramTime(8, 50), j.JourneyClock())
	assert.Equal(t, 55*time.Minute, s.TotalCost())
	assert.Equal(t, 2, j.NumberOfChanges())
	assert.Equal(t, 2, j.NumberOfInterchanges())
	assert.Equal(t, []string{"t1", "t2", "t3"}, j.TripsDone())
	assert.Equal(t, "E", j.ApproxPosition().StationID)
	assert.Equal(t, []string{"A", "B"}, stations)

	path := f.machine.Arena().Path(s.Index())
	assert.Equal(t, NotStarted, path[0].Type())
	assert.Equal(t, NoPlatformStation, path[len(path)-2].Type())
	assert.Len(t, path, len(steps)+2)
}

func TestMachineWaitCostFollowsClock(t *testing.T) {
	f := newFixture(t, false)
	s := f.root(t, "A", datastructure.NewTramTime(7, 40))
	for _, rel := range []graph.RelationshipType{graph.Origin, graph.Board, graph.ToService, graph.ToHour} {
		s = f.follow(t, s, rel)
	}
	require.Equal(t, Hour, s.Type())
	assert.Equal(t, 8, s.GraphNode().Hour)

	rel, ok := s.NextOutbound()
	require.True(t, ok)
	assert.Equal(t, 20*time.Minute, f.machine.EdgeCost(s, rel))

	node, err := f.tx.Node(rel.To)
	require.NoError(t, err)
	minute, err := f.machine.Next(s, rel, node)
	require.NoError(t, err)
	assert.Equal(t, datastructure.NewTramTime(8, 0), minute.JourneyState().JourneyClock())
	assert.Equal(t, "t1", minute.TripID())
}

func TestMachineRejectsDepartedMinute(t *testing.T) {
	f := newFixture(t, false)
	s := f.root(t, "A", datastructure.NewTramTime(8, 30))
	for _, rel := range []graph.RelationshipType{graph.Origin, graph.Board, graph.ToService} {
		s = f.follow(t, s, rel)
	}
	// rolling order puts the current hour first
	hour := f.follow(t, s, graph.ToHour)
	assert.Equal(t, 8, hour.GraphNode().Hour)

	rel, ok := hour.NextOutbound()
	require.True(t, ok)
	assert.Negative(t, f.machine.EdgeCost(hour, rel))
	node, err := f.tx.Node(rel.To)
	require.NoError(t, err)
	_, err = f.machine.Next(hour, rel, node)
	assert.Error(t, err)
}

func TestMachineOnTripDepartsFirst(t *testing.T) {
	f := newFixture(t, false)
	s := f.root(t, "A", datastructure.NewTramTime(7, 55))
	for _, rel := range []graph.RelationshipType{graph.Origin, graph.Board, graph.ToService, graph.ToHour,
		graph.ToMinute, graph.TramGoesTo} {
		s = f.follow(t, s, rel)
	}
	require.Equal(t, RouteStationOnTrip, s.Type())
	out := s.Outbound()
	require.Len(t, out, 2)
	assert.Equal(t, graph.Depart, out[0].Type)
	assert.Equal(t, graph.ToService, out[1].Type)

	// alighting at a non interchange is dropped when changing only at interchanges
	g := newFixture(t, true)
	s = g.root(t, "A", datastructure.NewTramTime(7, 55))
	for _, rel := range []graph.RelationshipType{graph.Origin, graph.Board, graph.ToService, graph.ToHour,
		graph.ToMinute, graph.TramGoesTo} {
		s = g.follow(t, s, rel)
	}
	out = s.Outbound()
	require.Len(t, out, 1)
	assert.Equal(t, graph.ToService, out[0].Type)
}

func TestMachineUnregisteredTransition(t *testing.T) {
	g := graph.NewMemoryGraph()
	station := g.AddNode(graph.Node{Labels: graph.Station, StationID: "S"})
	hour := g.AddNode(graph.Node{Labels: graph.Hour, Hour: 8})
	g.AddRelationship(graph.Relationship{Type: graph.ToHour, From: station, To: hour})
	tx, err := g.BeginTx()
	require.NoError(t, err)

	m := NewMachine(NewTransitionTable(), NewTraversalOps(tx, nil, network.FixtureDate, nil, false), NewArena(4))
	root := m.Root(datastructure.NewTramTime(8, 0), []graph.NodeID{station})
	rel, _ := root.NextOutbound()
	node, _ := tx.Node(rel.To)
	s, err := m.Next(root, rel, node)
	require.NoError(t, err)

	hourNode, _ := tx.Node(hour)
	_, err = m.Next(s, graph.Relationship{Type: graph.ToHour, From: station, To: hour}, hourNode)
	var notFound *NextStateNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, NoPlatformStation, notFound.From)
	assert.Equal(t, Hour, notFound.To)
}

func TestMachineMinuteWithoutTrip(t *testing.T) {
	g := graph.NewMemoryGraph()
	hour := g.AddNode(graph.Node{Labels: graph.Hour, Hour: 8})
	minute := g.AddNode(graph.Node{Labels: graph.Minute, Time: datastructure.NewTramTime(8, 5)})
	g.AddRelationship(graph.Relationship{Type: graph.ToMinute, From: hour, To: minute, Time: datastructure.NewTramTime(8, 5)})
	tx, err := g.BeginTx()
	require.NoError(t, err)

	m := NewMachine(NewTransitionTable(), NewTraversalOps(tx, nil, network.FixtureDate, nil, false), NewArena(4))
	root := m.Root(datastructure.NewTramTime(8, 0), nil)
	hourState := &TraversalState{stateType: Hour, node: graph.Node{ID: hour, Labels: graph.Hour},
		parent: root.Index(), journey: root.JourneyState()}
	m.Arena().Add(hourState)

	rels, err := tx.Outgoing(hour, graph.ToMinute)
	require.NoError(t, err)
	node, _ := tx.Node(minute)
	_, err = m.Next(hourState, rels[0], node)
	assert.True(t, errors.Is(err, ErrMissingTripID))
}

func TestTargetStateLabels(t *testing.T) {
	m := NewMachine(NewTransitionTable(), nil, NewArena(1))
	from := &TraversalState{stateType: NotStarted}

	valid := []struct {
		labels graph.Labels
		want   StateType
	}{
		{graph.Station, NoPlatformStation},
		{graph.Station | graph.Interchange, NoPlatformStation},
		{graph.Station | graph.HasPlatforms, PlatformStation},
		{graph.Station | graph.HasPlatforms | graph.Interchange, PlatformStation},
		{graph.Platform, Platform},
		{graph.RouteStation | graph.Interchange, JustBoarded},
		{graph.Service, Service},
		{graph.Hour, Hour},
		{graph.Minute, Minute},
		{graph.Grouped, GroupedStation},
		{graph.QueryNode, Walking},
	}
	for _, tc := range valid {
		got, err := m.TargetState(from, graph.Node{Labels: tc.labels})
		require.NoError(t, err, tc.labels.String())
		assert.Equal(t, tc.want, got, tc.labels.String())
	}

	invalid := []graph.Labels{
		0,
		graph.Interchange,
		graph.Station | graph.Platform,
		graph.Platform | graph.Interchange,
		graph.RouteStation | graph.HasPlatforms,
		graph.Minute | graph.Hour,
		graph.Service | graph.Interchange,
	}
	for _, labels := range invalid {
		_, err := m.TargetState(from, graph.Node{ID: 3, Labels: labels})
		var unexpected *UnexpectedLabelsError
		require.True(t, errors.As(err, &unexpected), labels.String())
		assert.Equal(t, graph.NodeID(3), unexpected.Node)
	}
}

func TestDiversionUnionedWithDeparts(t *testing.T) {
	n := network.ThreeRouteFixture()
	n.Diversions = []network.Diversion{{
		Route: "r1", Station: "B", To: "D", Cost: 4 * time.Minute,
		Start: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, n.Validate())
	g, err := network.BuildGraph(n)
	require.NoError(t, err)
	index, err := routes.NewRouteIndex(n)
	require.NoError(t, err)

	onTripAtB := func(date time.Time) *TraversalState {
		tx, err := g.BeginTx()
		require.NoError(t, err)
		f := &fixture{tx: tx, index: index,
			machine: NewMachine(NewTransitionTable(), NewTraversalOps(tx, index, date, nil, false), NewArena(16))}
		s := f.root(t, "A", datastructure.NewTramTime(7, 55))
		for _, rel := range []graph.RelationshipType{graph.Origin, graph.Board, graph.ToService, graph.ToHour,
			graph.ToMinute, graph.TramGoesTo} {
			s = f.follow(t, s, rel)
		}
		return s
	}

	inside := onTripAtB(network.FixtureDate).Outbound()
	assert.Len(t, inside, 3)
	assert.Equal(t, graph.Depart, inside[0].Type)
	assert.Equal(t, graph.DiversionDepart, inside[1].Type)

	outside := onTripAtB(time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)).Outbound()
	assert.Len(t, outside, 2)
}

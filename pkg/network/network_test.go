package network

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tinyNetwork = `
name: tiny
stations:
  - id: X
    location: {lat: 53.00, lon: -2.0}
  - id: M
    location: {lat: 53.01, lon: -2.0}
    interchange: true
  - id: Z
    location: {lat: 53.02, lon: -2.0}
  - id: W
    location: {lat: 53.021, lon: -2.0}
routes:
  - id: ra
    mode: bus
  - id: rb
    mode: train
  - id: rc
    mode: tram
services:
  - id: weekdays
    start: 2026-01-01
    end: 2026-12-31
    days: [mon, tue, wed, thu, fri]
trips:
  - id: ta
    route: ra
    service: weekdays
    stops:
      - {station: X, arrive: "07:00", depart: "07:00"}
      - {station: M, arrive: "07:10", depart: "07:10"}
  - id: tb
    route: rb
    service: weekdays
    stops:
      - {station: M, arrive: "07:20", depart: "07:20"}
      - {station: Z, arrive: "07:30", depart: "07:30"}
  - id: tc
    route: rc
    service: weekdays
    stops:
      - {station: W, arrive: "07:40", depart: "07:40"}
      - {station: X, arrive: "07:55", depart: "07:55"}
neighbours:
  - {from: Z, to: W, cost: 2m}
groups:
  - id: G
    stations: [Z, W]
`

func TestParse(t *testing.T) {
	n, err := Parse([]byte(tinyNetwork))
	require.NoError(t, err)

	assert.Equal(t, "tiny", n.Name)
	assert.Len(t, n.Stations, 4)
	assert.Equal(t, datastructure.Train, n.Routes[1].Mode)
	assert.Equal(t, datastructure.NewTramTime(7, 20), n.Trips[1].Stops[0].Depart)
	assert.Equal(t, 2*time.Minute, n.Neighbours[0].Cost)

	days, err := n.Services[0].calendarDays()
	require.NoError(t, err)
	assert.Zero(t, days&(1<<uint(time.Sunday)))
	assert.NotZero(t, days&(1<<uint(time.Monday)))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tinyNetwork), 0o644))

	n, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n.NumberOfRoutes())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tt := []struct {
		name   string
		mutate func(n *Network)
	}{
		{"unknown station in trip", func(n *Network) { n.Trips[0].Stops[1].Station = "Q" }},
		{"unknown route", func(n *Network) { n.Trips[0].Route = "nope" }},
		{"unknown service", func(n *Network) { n.Trips[0].Service = "nope" }},
		{"unknown platform", func(n *Network) { n.Trips[0].Stops[2].Platform = "9" }},
		{"time travel", func(n *Network) { n.Trips[0].Stops[1].Arrive = datastructure.NewTramTime(7, 0) }},
		{"depart before arrive", func(n *Network) { n.Trips[0].Stops[1].Depart = datastructure.NewTramTime(8, 1) }},
		{"duplicate station", func(n *Network) { n.Stations = append(n.Stations, Station{ID: "A"}) }},
		{"duplicate trip", func(n *Network) { n.Trips = append(n.Trips, n.Trips[0]) }},
		{"single stop trip", func(n *Network) { n.Trips[0].Stops = n.Trips[0].Stops[:1] }},
		{"self neighbour", func(n *Network) { n.Neighbours = []Neighbour{{From: "A", To: "A"}} }},
		{"bad day", func(n *Network) { n.Services[0].Days = []string{"someday"} }},
		{"group named like station", func(n *Network) { n.Groups = []Group{{ID: "A", Stations: []string{"B"}}} }},
		{"double closure", func(n *Network) {
			n.Closures = []Closure{{Station: "B"}, {Station: "B"}}
		}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			n := ThreeRouteFixture()
			tc.mutate(n)
			err := n.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidNetwork))
		})
	}
}

func TestDirectInterchanges(t *testing.T) {
	n := ThreeRouteFixture()
	assert.Equal(t, []routes.RouteID{"r2"}, n.DirectInterchanges("r1"))
	assert.Equal(t, []routes.RouteID{"r3"}, n.DirectInterchanges("r2"))
	assert.Empty(t, n.DirectInterchanges("r3"))

	tiny, err := Parse([]byte(tinyNetwork))
	require.NoError(t, err)
	// M is shared, Z and W are neighbours, rc drops off at X where ra starts
	assert.Equal(t, []routes.RouteID{"rb"}, tiny.DirectInterchanges("ra"))
	assert.Equal(t, []routes.RouteID{"rc"}, tiny.DirectInterchanges("rb"))
	assert.Equal(t, []routes.RouteID{"ra"}, tiny.DirectInterchanges("rc"))
}

func TestDirectInterchangesFollowEveryChange(t *testing.T) {
	tt := []struct {
		name   string
		mutate func(n *Network)
		route  routes.RouteID
		want   []routes.RouteID
	}{
		{
			name:   "shared station without interchange flag",
			mutate: func(n *Network) { n.Stations[3].Interchange = false },
			route:  "r2",
			want:   []routes.RouteID{"r3"},
		},
		{
			name: "sibling in a group",
			mutate: func(n *Network) {
				n.Stations = append(n.Stations, Station{ID: "D2", Location: datastructure.NewCoordinate(53.4951, -2.2101)})
				n.Trips[3].Stops[0].Station = "D2"
				n.Groups = []Group{{ID: "G", Stations: []string{"D", "D2"}}}
			},
			route: "r2",
			want:  []routes.RouteID{"r3"},
		},
		{
			name: "neighbour of a group sibling",
			mutate: func(n *Network) {
				n.Stations = append(n.Stations,
					Station{ID: "D2", Location: datastructure.NewCoordinate(53.4951, -2.2101)},
					Station{ID: "D3", Location: datastructure.NewCoordinate(53.4952, -2.2102)})
				n.Trips[3].Stops[0].Station = "D3"
				n.Groups = []Group{{ID: "G", Stations: []string{"D", "D2"}}}
				n.Neighbours = []Neighbour{{From: "D2", To: "D3"}}
			},
			route: "r2",
			want:  []routes.RouteID{"r3"},
		},
		{
			name: "diversion drop off",
			mutate: func(n *Network) {
				n.Diversions = []Diversion{{Route: "r1", Station: "B", To: "D", Start: FixtureDate, End: FixtureDate}}
			},
			route: "r1",
			want:  []routes.RouteID{"r2", "r3"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			n := ThreeRouteFixture()
			tc.mutate(n)
			require.NoError(t, n.Validate())
			assert.Equal(t, tc.want, n.DirectInterchanges(tc.route))
		})
	}
}

func TestFingerprint(t *testing.T) {
	a, err := ThreeRouteFixture().Fingerprint()
	require.NoError(t, err)
	b, err := ThreeRouteFixture().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	changed := ThreeRouteFixture()
	changed.Trips[0].Stops[0].Depart = datastructure.NewTramTime(7, 59)
	changed.Trips[0].Stops[0].Arrive = datastructure.NewTramTime(7, 59)
	c, err := changed.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func countByRole(t *testing.T, g *graph.MemoryGraph) map[graph.Labels]int {
	t.Helper()
	tx, err := g.BeginTx()
	require.NoError(t, err)
	counts := make(map[graph.Labels]int)
	for id := 0; id < g.NumberOfNodes(); id++ {
		node, err := tx.Node(graph.NodeID(id))
		require.NoError(t, err)
		counts[node.Labels.Roles()]++
	}
	return counts
}

func TestBuildGraph(t *testing.T) {
	g, err := BuildGraph(ThreeRouteFixture())
	require.NoError(t, err)

	counts := countByRole(t, g)
	assert.Equal(t, 5, counts[graph.Station])
	assert.Equal(t, 2, counts[graph.Platform])
	assert.Equal(t, 7, counts[graph.RouteStation])
	assert.Equal(t, 4, counts[graph.Service])
	assert.Equal(t, 6, counts[graph.Hour])
	assert.Equal(t, 6, counts[graph.Minute])
	assert.Equal(t, 30, g.NumberOfNodes())

	tx, err := g.BeginTx()
	require.NoError(t, err)

	c, ok := tx.LocationNode("C")
	require.True(t, ok)
	node, err := tx.Node(c)
	require.NoError(t, err)
	assert.True(t, node.Labels.Has(graph.Station|graph.HasPlatforms|graph.Interchange))

	platforms, err := tx.Outgoing(c, graph.EnterPlatform)
	require.NoError(t, err)
	require.Len(t, platforms, 2)

	// r1 alights at platform 1, r2 boards at platform 2
	in, err := tx.Incoming(platforms[0].To, graph.InterchangeDepart)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "r1", in[0].RouteID)
	out, err := tx.Outgoing(platforms[1].To, graph.InterchangeBoard)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "r2", out[0].RouteID)

	a, _ := tx.LocationNode("A")
	boards, err := tx.Outgoing(a, graph.Board)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	rs, err := tx.Node(boards[0].To)
	require.NoError(t, err)
	assert.Equal(t, datastructure.Tram, rs.Mode)

	services, err := tx.Outgoing(rs.ID, graph.ToService)
	require.NoError(t, err)
	require.Len(t, services, 1)
	hours, err := tx.Outgoing(services[0].To, graph.ToHour)
	require.NoError(t, err)
	assert.Len(t, hours, 2)

	minutes, err := tx.Outgoing(hours[0].To, graph.ToMinute)
	require.NoError(t, err)
	require.Len(t, minutes, 1)
	assert.Equal(t, "t1", minutes[0].TripID)
	goes, err := tx.Outgoing(minutes[0].To, graph.TramGoesTo)
	require.NoError(t, err)
	require.Len(t, goes, 1)
	assert.Equal(t, 5*time.Minute, goes[0].Cost)
}

func TestBuildGraphDiversionsAndClosures(t *testing.T) {
	n := ThreeRouteFixture()
	n.Diversions = []Diversion{{
		Route:   "r2",
		Station: "D",
		To:      "E",
		Cost:    7 * time.Minute,
		Start:   time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC),
	}}
	n.Closures = []Closure{{
		Station: "D",
		Start:   time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, n.Validate())

	g, err := BuildGraph(n)
	require.NoError(t, err)
	tx, err := g.BeginTx()
	require.NoError(t, err)

	e, _ := tx.LocationNode("E")
	in, err := tx.Incoming(e, graph.DiversionDepart)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, 7*time.Minute, in[0].Cost)
	assert.True(t, in[0].AvailableOn(FixtureDate))
	assert.False(t, in[0].AvailableOn(time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)))

	d, _ := tx.LocationNode("D")
	departs, err := tx.Incoming(d, graph.InterchangeDepart)
	require.NoError(t, err)
	require.Len(t, departs, 1)
	assert.False(t, departs[0].AvailableOn(FixtureDate))
	assert.True(t, departs[0].AvailableOn(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)))

	n.Diversions[0].Station = "A"
	require.NoError(t, n.Validate())
	_, err = BuildGraph(n)
	assert.Error(t, err)
}

func TestBuildGraphGroups(t *testing.T) {
	tiny, err := Parse([]byte(tinyNetwork))
	require.NoError(t, err)
	g, err := BuildGraph(tiny)
	require.NoError(t, err)

	tx, err := g.BeginTx()
	require.NoError(t, err)
	group, ok := tx.LocationNode("G")
	require.True(t, ok)
	node, err := tx.Node(group)
	require.NoError(t, err)
	assert.Equal(t, graph.Grouped, node.Labels)
	assert.InDelta(t, 53.0205, node.Location.Lat, 1e-9)

	children, err := tx.Outgoing(group, graph.GroupedToChild)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	z, _ := tx.LocationNode("Z")
	nbs, err := tx.Outgoing(z, graph.Neighbour)
	require.NoError(t, err)
	require.Len(t, nbs, 1)
	assert.Equal(t, 2*time.Minute, nbs[0].Cost)
}

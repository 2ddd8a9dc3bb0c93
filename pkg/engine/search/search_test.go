package search

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/engine/selector"
	"github.com/lintang-b-s/transitplanner/pkg/metrics"
	"github.com/lintang-b-s/transitplanner/pkg/network"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	search *JourneySearch
	index  *routes.RouteIndex
	ix     *routes.InterchangeIndex
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newNetworkFixture(t, network.ThreeRouteFixture(), true)
}

// newNetworkFixture searches n, pruning with an interchange index only when withIndex is set.
func newNetworkFixture(t *testing.T, n *network.Network, withIndex bool) *fixture {
	t.Helper()
	require.NoError(t, n.Validate())
	g, err := network.BuildGraph(n)
	require.NoError(t, err)
	index, err := routes.NewRouteIndex(n)
	require.NoError(t, err)
	var ix *routes.InterchangeIndex
	if withIndex {
		ix, err = routes.BuildInterchangeIndex(context.Background(), index, n, routes.InterchangeOptions{})
		require.NoError(t, err)
	}

	reg := prometheus.NewRegistry()
	js := NewJourneySearch(g, index, ix, WithMetrics(metrics.NewMetrics(reg)))
	return &fixture{search: js, index: index, ix: ix, reg: reg}
}

func request(from, to Location, maxChanges int, kind selector.Kind) SearchRequest {
	return SearchRequest{
		Origins:      []Location{from},
		Destinations: []Location{to},
		Date:         network.FixtureDate,
		StartTime:    datastructure.NewTramTime(7, 55),
		Options:      Options{MaxChanges: maxChanges, Selector: kind},
	}
}

func TestSearchRidesThreeRoutes(t *testing.T) {
	for _, kind := range []selector.Kind{selector.DepthFirst, selector.BreadthFirstByDistance, selector.GridBased} {
		t.Run(string(kind), func(t *testing.T) {
			f := newFixture(t)
			stream, err := f.search.Search(context.Background(), request(StationLocation("A"), StationLocation("E"), 2, kind))
			require.NoError(t, err)

			journeys := stream.Collect(0)
			require.NoError(t, stream.Err())
			assert.Equal(t, OutcomeFound, stream.Outcome())
			require.Len(t, journeys, 1)

			j := journeys[0]
			assert.Equal(t, []string{"A", "B", "C", "D", "E"}, j.Stations)
			assert.Equal(t, []routes.RouteID{"r1", "r2", "r3"}, j.Routes)
			assert.Equal(t, []string{"t1", "t2", "t3"}, j.Trips)
			assert.Equal(t, 2, j.Changes)
			assert.Equal(t, datastructure.NewTramTime(8, 0), j.DepartAt)
			assert.Equal(t, datastructure.NewTramTime(8, 50), j.ArriveAt)
			assert.Equal(t, 50*time.Minute, j.Duration())

			require.Len(t, j.Stages, 3)
			assert.Equal(t, Stage{Kind: VehicleStage, Mode: datastructure.Tram, Route: "r1", Trip: "t1", From: "A", To: "C",
				DepartAt: datastructure.NewTramTime(8, 0), ArriveAt: datastructure.NewTramTime(8, 12)}, j.Stages[0])
			assert.Equal(t, Stage{Kind: VehicleStage, Mode: datastructure.Bus, Route: "r2", Trip: "t2", From: "C", To: "D",
				DepartAt: datastructure.NewTramTime(8, 20), ArriveAt: datastructure.NewTramTime(8, 30)}, j.Stages[1])
			assert.Equal(t, "E", j.Stages[2].To)
			assert.NotEmpty(t, j.Path)
		})
	}
}

type networkCase struct {
	name     string
	network  func(n *network.Network)
	request  func(r *SearchRequest)
	outcome  Outcome
	journeys int
	stations []string
	routes   []routes.RouteID
	arriveAt datastructure.TramTime
}

func addStation(n *network.Network, id string, lat, lon float64) {
	n.Stations = append(n.Stations, network.Station{ID: id, Location: datastructure.NewCoordinate(lat, lon)})
}

func networkCases() []networkCase {
	tt := datastructure.NewTramTime
	return []networkCase{
		{
			name:     "change at a station without interchange flag",
			network:  func(n *network.Network) { n.Stations[3].Interchange = false },
			outcome:  OutcomeFound,
			journeys: 1,
			stations: []string{"A", "B", "C", "D", "E"},
			routes:   []routes.RouteID{"r1", "r2", "r3"},
			arriveAt: tt(8, 50),
		},
		{
			name: "change through a station group",
			network: func(n *network.Network) {
				addStation(n, "D2", 53.4951, -2.2101)
				n.Trips[3].Stops[0].Station = "D2"
				n.Groups = []network.Group{{ID: "GD", Stations: []string{"D", "D2"}}}
			},
			outcome:  OutcomeFound,
			journeys: 1,
			stations: []string{"A", "B", "C", "D", "D2", "E"},
			routes:   []routes.RouteID{"r1", "r2", "r3"},
			arriveAt: tt(8, 50),
		},
		{
			name: "change over a neighbour link",
			network: func(n *network.Network) {
				addStation(n, "D2", 53.4951, -2.2101)
				n.Trips[3].Stops[0].Station = "D2"
				n.Neighbours = []network.Neighbour{{From: "D", To: "D2", Cost: 2 * time.Minute}}
			},
			outcome:  OutcomeFound,
			journeys: 1,
			stations: []string{"A", "B", "C", "D", "D2", "E"},
			routes:   []routes.RouteID{"r1", "r2", "r3"},
			arriveAt: tt(8, 50),
		},
		{
			name: "grouped origin",
			network: func(n *network.Network) {
				addStation(n, "A2", 53.4801, -2.2401)
				n.Groups = []network.Group{{ID: "GA", Stations: []string{"A", "A2"}}}
			},
			request:  func(r *SearchRequest) { r.Origins = []Location{StationLocation("GA")} },
			outcome:  OutcomeFound,
			journeys: 1,
			stations: []string{"A", "B", "C", "D", "E"},
			routes:   []routes.RouteID{"r1", "r2", "r3"},
			arriveAt: tt(8, 50),
		},
		{
			name:    "grouped destination",
			network: func(n *network.Network) { n.Groups = []network.Group{{ID: "GE", Stations: []string{"D", "E"}}} },
			request: func(r *SearchRequest) {
				r.Destinations = []Location{StationLocation("GE")}
				r.Options.MaxChanges = 1
			},
			outcome:  OutcomeFound,
			journeys: 1,
			stations: []string{"A", "B", "C", "D"},
			routes:   []routes.RouteID{"r1", "r2"},
			arriveAt: tt(8, 30),
		},
		{
			name: "diversion replaces the last change",
			network: func(n *network.Network) {
				n.Diversions = []network.Diversion{{Route: "r2", Station: "D", To: "E", Cost: 7 * time.Minute,
					Start: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)}}
			},
			request:  func(r *SearchRequest) { r.Options.MaxChanges = 1 },
			outcome:  OutcomeFound,
			journeys: 1,
			stations: []string{"A", "B", "C", "D", "E"},
			routes:   []routes.RouteID{"r1", "r2"},
			arriveAt: tt(8, 37),
		},
		{
			name: "change mid trip",
			network: func(n *network.Network) {
				n.Trips[2].Stops[0] = network.StopCall{Station: "B", Arrive: tt(8, 15), Depart: tt(8, 15)}
			},
			outcome:  OutcomeFound,
			journeys: 1,
			stations: []string{"A", "B", "D", "E"},
			routes:   []routes.RouteID{"r1", "r2", "r3"},
			arriveAt: tt(8, 50),
		},
		{
			name: "change mid trip only at interchanges",
			network: func(n *network.Network) {
				n.Trips[2].Stops[0] = network.StopCall{Station: "B", Arrive: tt(8, 15), Depart: tt(8, 15)}
			},
			request: func(r *SearchRequest) { r.Options.ChangeAtInterchangeOnly = true },
			outcome: OutcomeExhausted,
		},
		{
			name: "later arrival with as many changes is dominated",
			network: func(n *network.Network) {
				n.Trips = append(n.Trips, network.Trip{ID: "t3b", Route: "r3", Service: "daily", Stops: []network.StopCall{
					{Station: "D", Arrive: tt(8, 55), Depart: tt(8, 55)},
					{Station: "E", Arrive: tt(9, 5), Depart: tt(9, 5)},
				}})
			},
			outcome:  OutcomeFound,
			journeys: 1,
			stations: []string{"A", "B", "C", "D", "E"},
			routes:   []routes.RouteID{"r1", "r2", "r3"},
			arriveAt: tt(8, 50),
		},
		{
			name:    "walking connection limit",
			network: func(n *network.Network) {},
			request: func(r *SearchRequest) {
				r.Origins = []Location{CoordinateLocation(53.4805, -2.2400)}
				r.Destinations = []Location{CoordinateLocation(53.5003, -2.2000)}
				r.Options.NearbyRadius = 200
				r.Options.MaxWalkingConnections = 1
			},
			outcome: OutcomeExhausted,
		},
	}
}

func TestSearchNetworkVariants(t *testing.T) {
	for _, tc := range networkCases() {
		for _, withIndex := range []bool{true, false} {
			name := tc.name + "/without index"
			if withIndex {
				name = tc.name + "/with index"
			}
			t.Run(name, func(t *testing.T) {
				n := network.ThreeRouteFixture()
				tc.network(n)
				f := newNetworkFixture(t, n, withIndex)

				req := request(StationLocation("A"), StationLocation("E"), 2, "")
				if tc.request != nil {
					tc.request(&req)
				}
				stream, err := f.search.Search(context.Background(), req)
				require.NoError(t, err)

				journeys := stream.Collect(0)
				require.NoError(t, stream.Err())
				assert.Equal(t, tc.outcome, stream.Outcome())
				require.Len(t, journeys, tc.journeys)
				if tc.journeys == 0 {
					return
				}
				j := journeys[0]
				assert.Equal(t, tc.stations, j.Stations)
				assert.Equal(t, tc.routes, j.Routes)
				assert.Equal(t, tc.arriveAt, j.ArriveAt)
			})
		}
	}
}

func TestSearchIndexKeepsEveryJourney(t *testing.T) {
	for _, tc := range networkCases() {
		t.Run(tc.name, func(t *testing.T) {
			collect := func(withIndex bool) [][]string {
				n := network.ThreeRouteFixture()
				tc.network(n)
				f := newNetworkFixture(t, n, withIndex)
				req := request(StationLocation("A"), StationLocation("E"), 2, selector.DepthFirst)
				if tc.request != nil {
					tc.request(&req)
				}
				req.Options.MaxResults = 10
				stream, err := f.search.Search(context.Background(), req)
				require.NoError(t, err)
				var stations [][]string
				for _, j := range stream.Collect(0) {
					stations = append(stations, j.Stations)
				}
				require.NoError(t, stream.Err())
				return stations
			}
			assert.ElementsMatch(t, collect(false), collect(true))
		})
	}
}

func TestSearchDominatedBranchesArePruned(t *testing.T) {
	n := network.ThreeRouteFixture()
	n.Trips = append(n.Trips, network.Trip{ID: "t3b", Route: "r3", Service: "daily", Stops: []network.StopCall{
		{Station: "D", Arrive: datastructure.NewTramTime(8, 55), Depart: datastructure.NewTramTime(8, 55)},
		{Station: "E", Arrive: datastructure.NewTramTime(9, 5), Depart: datastructure.NewTramTime(9, 5)},
	}})
	f := newNetworkFixture(t, n, true)

	stream, err := f.search.Search(context.Background(), request(StationLocation("A"), StationLocation("E"), 2, ""))
	require.NoError(t, err)
	journeys := stream.Collect(0)
	require.NoError(t, stream.Err())
	require.Len(t, journeys, 1)
	assert.Equal(t, []string{"t1", "t2", "t3"}, journeys[0].Trips)
	assert.Greater(t, counterValue(t, f.reg, "transitplanner_pruned_branches_total", "reason", pruneDominated), 0.0)
}

func TestSearchChangeBudgetTooSmall(t *testing.T) {
	f := newFixture(t)
	depth, ok := f.ix.MinInterchanges(f.index.MustIndexFor("r1"), f.index.MustIndexFor("r3"))
	require.True(t, ok)
	assert.Equal(t, uint8(2), depth)

	stream, err := f.search.Search(context.Background(), request(StationLocation("A"), StationLocation("E"), 1, ""))
	require.NoError(t, err)

	assert.Empty(t, stream.Collect(0))
	assert.NoError(t, stream.Err())
	assert.Equal(t, OutcomeExhausted, stream.Outcome())
	assert.Equal(t, 1.0, searchCount(t, f.reg, "exhausted"))
	pruned, err := testutil.GatherAndCount(f.reg, "transitplanner_pruned_branches_total")
	require.NoError(t, err)
	assert.Greater(t, pruned, 0)
}

func TestSearchNodeBudget(t *testing.T) {
	f := newFixture(t)
	req := request(StationLocation("A"), StationLocation("E"), 2, selector.DepthFirst)
	req.Options.MaxNodeVisits = 3

	stream, err := f.search.Search(context.Background(), req)
	require.NoError(t, err)
	_, ok := stream.Next()
	assert.False(t, ok)
	assert.NoError(t, stream.Err())
	assert.Equal(t, OutcomeBudgetExceeded, stream.Outcome())
	assert.Equal(t, "no journey within budget", stream.Outcome().Describe())
	assert.Equal(t, 3, stream.NodesVisited())
}

func TestSearchModeFilter(t *testing.T) {
	f := newFixture(t)
	req := request(StationLocation("A"), StationLocation("E"), 2, "")
	req.Options.Modes = []datastructure.TransportMode{datastructure.Tram}

	stream, err := f.search.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, stream.Collect(0))
	assert.Equal(t, OutcomeExhausted, stream.Outcome())
}

func TestSearchTooEarlyToWait(t *testing.T) {
	f := newFixture(t)
	req := request(StationLocation("A"), StationLocation("E"), 2, "")
	req.StartTime = datastructure.NewTramTime(6, 0)

	stream, err := f.search.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, stream.Collect(0))
	assert.Equal(t, OutcomeExhausted, stream.Outcome())
}

func TestSearchTrivialJourney(t *testing.T) {
	f := newFixture(t)
	stream, err := f.search.Search(context.Background(), request(StationLocation("A"), StationLocation("A"), 2, ""))
	require.NoError(t, err)
	assert.Empty(t, stream.Collect(0))
	assert.NoError(t, stream.Err())
}

func TestSearchCoordinates(t *testing.T) {
	f := newFixture(t)
	req := request(CoordinateLocation(53.4805, -2.2400), CoordinateLocation(53.5003, -2.2000), 2, "")
	req.Options.NearbyRadius = 200

	stream, err := f.search.Search(context.Background(), req)
	require.NoError(t, err)
	journeys := stream.Collect(1)
	require.NoError(t, stream.Err())
	require.Len(t, journeys, 1)

	j := journeys[0]
	assert.Equal(t, 2, j.WalkingConnections)
	first, last := j.Stages[0], j.Stages[len(j.Stages)-1]
	assert.Equal(t, WalkStage, first.Kind)
	assert.Equal(t, "A", first.To)
	assert.Equal(t, WalkStage, last.Kind)
	assert.Equal(t, "E", last.From)
	assert.Equal(t, "", last.To)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, j.Stations)
	assert.True(t, j.ArriveAt.IsAfter(datastructure.NewTramTime(8, 50)) || j.ArriveAt == datastructure.NewTramTime(8, 50))
}

func TestSearchCoordinateWithoutStations(t *testing.T) {
	f := newFixture(t)
	req := request(CoordinateLocation(51.5072, -0.1276), StationLocation("E"), 2, "")
	_, err := f.search.Search(context.Background(), req)
	assert.True(t, errors.Is(err, ErrUnknownLocation))
}

func TestSearchInvalidRequests(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		mutate func(r *SearchRequest)
		want   error
	}{
		{"no origins", func(r *SearchRequest) { r.Origins = nil }, ErrInvalidRequest},
		{"empty location", func(r *SearchRequest) { r.Destinations = []Location{{}} }, ErrInvalidRequest},
		{"no date", func(r *SearchRequest) { r.Date = time.Time{} }, ErrInvalidRequest},
		{"bad selector", func(r *SearchRequest) { r.Options.Selector = "astar" }, ErrInvalidRequest},
		{"negative changes", func(r *SearchRequest) { r.Options.MaxChanges = -1 }, ErrInvalidRequest},
		{"unknown station", func(r *SearchRequest) { r.Origins = []Location{StationLocation("Q")} }, ErrUnknownLocation},
		{"coordinate out of range", func(r *SearchRequest) { r.Origins = []Location{CoordinateLocation(91, 0)} }, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(StationLocation("A"), StationLocation("E"), 2, "")
			tt.mutate(&req)
			_, err := f.search.Search(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestSearchCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := f.search.Search(ctx, request(StationLocation("A"), StationLocation("E"), 2, ""))
	require.NoError(t, err)
	cancel()

	_, ok := stream.Next()
	assert.False(t, ok)
	assert.True(t, errors.Is(stream.Err(), context.Canceled))
	assert.Equal(t, OutcomeFailed, stream.Outcome())
}

func TestSearchDefaults(t *testing.T) {
	o := Options{MaxChanges: 1}.WithDefaults()
	assert.Equal(t, 1, o.MaxChanges)
	assert.Equal(t, DefaultOptions().MaxWait, o.MaxWait)
	assert.Equal(t, selector.BreadthFirstByDistance, o.Selector)
	assert.True(t, o.modeAllowed(datastructure.Bus))

	o.Modes = []datastructure.TransportMode{datastructure.Tram}
	assert.False(t, o.modeAllowed(datastructure.Bus))
}

func searchCount(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	return counterValue(t, reg, "transitplanner_searches_total", "outcome", outcome)
}

func counterValue(t *testing.T, reg *prometheus.Registry, family, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != family {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

package search

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/engine/selector"
	"github.com/lintang-b-s/transitplanner/pkg/engine/states"
	"github.com/lintang-b-s/transitplanner/pkg/geo"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
	"github.com/lintang-b-s/transitplanner/pkg/metrics"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
	"github.com/lintang-b-s/transitplanner/pkg/snap"
	"github.com/lintang-b-s/transitplanner/pkg/util"
	"github.com/uber/h3-go/v4"
)

const arenaCapacity = 1024

// JourneySearch finds journeys over a transport graph. safe for concurrent use, every search
// runs in its own transaction.
type JourneySearch struct {
	store        graph.Store
	routeIndex   *routes.RouteIndex
	interchanges *routes.InterchangeIndex
	table        *states.TransitionTable
	metrics      *metrics.Metrics
	defaults     Options
	gridRes      int

	stationsOnce sync.Once
	stationsErr  error
	snapper      *snap.StationSnapper
	grid         *geo.Grid
}

type Option func(*JourneySearch)

func WithMetrics(m *metrics.Metrics) Option {
	return func(js *JourneySearch) {
		js.metrics = m
	}
}

func WithTransitionTable(t *states.TransitionTable) Option {
	return func(js *JourneySearch) {
		js.table = t
	}
}

// WithDefaults options used for the zero fields of a request's options.
func WithDefaults(o Options) Option {
	return func(js *JourneySearch) {
		js.defaults = o
	}
}

func WithGridResolution(res int) Option {
	return func(js *JourneySearch) {
		js.gridRes = res
	}
}

func NewJourneySearch(store graph.Store, idx *routes.RouteIndex, ix *routes.InterchangeIndex, opts ...Option) *JourneySearch {
	js := &JourneySearch{
		store:        store,
		routeIndex:   idx,
		interchanges: ix,
		defaults:     DefaultOptions(),
		gridRes:      geo.DefaultGridResolution,
	}
	for _, opt := range opts {
		opt(js)
	}
	if js.table == nil {
		js.table = states.NewTransitionTable()
	}
	return js
}

func (js *JourneySearch) loadStations(tx graph.Transaction) error {
	js.stationsOnce.Do(func() {
		stations := tx.Stations()
		if len(stations) == 0 {
			js.stationsErr = errors.New("graph has no stations")
			return
		}
		cells := make(map[string]datastructure.Coordinate, len(stations))
		for _, s := range stations {
			cells[s.StationID] = s.Location
		}
		js.snapper = snap.NewStationSnapper(stations)
		js.grid = geo.NewGrid(js.gridRes, cells)
		slog.Debug("station lookups ready", "stations", len(stations), "gridResolution", js.gridRes)
	})
	return js.stationsErr
}

func (js *JourneySearch) mergeDefaults(o Options) Options {
	return o.fillFrom(js.defaults).WithDefaults()
}

// Search starts a search. journeys are produced lazily by the returned stream, which owns
// the graph transaction until it ends.
func (js *JourneySearch) Search(ctx context.Context, req SearchRequest) (*JourneyStream, error) {
	req.Options = js.mergeDefaults(req.Options)
	if err := util.ValidateStruct(req); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "search request"), ErrInvalidRequest)
	}

	tx, err := js.store.BeginTx()
	if err != nil {
		return nil, errors.Wrap(err, "beginning graph transaction")
	}
	stream, err := js.start(ctx, tx, req)
	if err != nil {
		tx.Close()
		return nil, err
	}
	return stream, nil
}

func (js *JourneySearch) start(ctx context.Context, tx graph.Transaction, req SearchRequest) (*JourneyStream, error) {
	opts := req.Options
	overlay := graph.NewQueryOverlay(tx)
	q := newQueryPlan(js, overlay, opts)

	for _, loc := range req.Origins {
		if err := q.addOrigin(loc); err != nil {
			return nil, err
		}
	}
	for _, loc := range req.Destinations {
		if err := q.addDestination(loc); err != nil {
			return nil, err
		}
	}
	destRoutes, err := q.destinationRoutes()
	if err != nil {
		return nil, err
	}

	ops := states.NewTraversalOps(overlay, js.routeIndex, req.Date, q.destinationNodes(), opts.ChangeAtInterchangeOnly)
	machine := states.NewMachine(js.table, ops, states.NewArena(arenaCapacity))
	root := machine.Root(req.StartTime, q.origins)

	exp := &expander{
		machine:      machine,
		tx:           overlay,
		routeIndex:   js.routeIndex,
		interchanges: js.interchanges,
		destRoutes:   destRoutes,
		opts:         opts,
		metrics:      js.metrics,
	}
	target, err := q.target(opts.Selector)
	if err != nil {
		return nil, err
	}
	sel, err := selector.New(opts.Selector, exp, root, target)
	if err != nil {
		return nil, errors.Mark(err, ErrInvalidRequest)
	}

	slog.Debug("journey search started", "origins", len(q.origins), "destinations", len(q.destinations),
		"destinationRoutes", len(destRoutes), "selector", opts.Selector, "date", req.Date.Format(time.DateOnly),
		"time", req.StartTime)
	return newJourneyStream(ctx, tx, machine, exp, sel, opts, js.metrics), nil
}

// queryPlan origin and destination nodes of one request and the query nodes standing in
// for coordinates.
type queryPlan struct {
	js           *JourneySearch
	overlay      *graph.QueryOverlay
	opts         Options
	origins      []graph.NodeID
	destinations []graph.NodeID
	// stations the destinations are reached from, for a coordinate the stations walked from
	destStations []graph.NodeID
	destCoords   []datastructure.Coordinate
}

func newQueryPlan(js *JourneySearch, overlay *graph.QueryOverlay, opts Options) *queryPlan {
	return &queryPlan{js: js, overlay: overlay, opts: opts}
}

func (q *queryPlan) nearby(loc datastructure.Coordinate) ([]snap.Candidate, error) {
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lon < -180 || loc.Lon > 180 {
		return nil, errors.Mark(errors.Newf("coordinate %.6f,%.6f out of range", loc.Lat, loc.Lon), ErrInvalidRequest)
	}
	if err := q.js.loadStations(q.overlay); err != nil {
		return nil, err
	}
	near := q.js.snapper.SnapToStations(loc, q.opts.NearbyRadius, q.opts.MaxNearestStations)
	if len(near) == 0 {
		return nil, errors.Wrapf(ErrUnknownLocation, "no station within %.0fm of %.6f,%.6f", q.opts.NearbyRadius, loc.Lat, loc.Lon)
	}
	return near, nil
}

func (q *queryPlan) lookup(loc Location) (graph.Node, error) {
	id, ok := q.overlay.LocationNode(loc.ID)
	if !ok {
		return graph.Node{}, errors.Wrapf(ErrUnknownLocation, "%q", loc.ID)
	}
	return q.overlay.Node(id)
}

func (q *queryPlan) addOrigin(loc Location) error {
	if loc.ID != "" {
		node, err := q.lookup(loc)
		if err != nil {
			return err
		}
		q.origins = append(q.origins, node.ID)
		return nil
	}
	near, err := q.nearby(*loc.Coordinate)
	if err != nil {
		return err
	}
	walk := q.overlay.AddQueryNode(*loc.Coordinate)
	for _, c := range near {
		q.overlay.AddRelationship(graph.Relationship{
			Type: graph.WalksToStation,
			From: walk,
			To:   c.Node,
			Cost: geo.WalkingCost(*loc.Coordinate, c.Location, q.opts.WalkingSpeed),
		})
	}
	q.origins = append(q.origins, walk)
	return nil
}

func (q *queryPlan) addDestination(loc Location) error {
	if loc.ID != "" {
		node, err := q.lookup(loc)
		if err != nil {
			return err
		}
		q.destCoords = append(q.destCoords, node.Location)
		if !node.Labels.Has(graph.Grouped) {
			return q.addDestinationStation(node.ID)
		}
		q.destinations = append(q.destinations, node.ID)
		children, err := q.overlay.Outgoing(node.ID, graph.GroupedToChild)
		if err != nil {
			return errors.Wrapf(err, "expanding group %s", loc.ID)
		}
		for _, c := range children {
			if err := q.addDestinationStation(c.To); err != nil {
				return err
			}
		}
		return nil
	}

	near, err := q.nearby(*loc.Coordinate)
	if err != nil {
		return err
	}
	walk := q.overlay.AddQueryNode(*loc.Coordinate)
	for _, c := range near {
		q.overlay.AddRelationship(graph.Relationship{
			Type: graph.WalksFromStation,
			From: c.Node,
			To:   walk,
			Cost: geo.WalkingCost(c.Location, *loc.Coordinate, q.opts.WalkingSpeed),
		})
		q.destStations = append(q.destStations, c.Node)
	}
	q.destinations = append(q.destinations, walk)
	q.destCoords = append(q.destCoords, *loc.Coordinate)
	return nil
}

// addDestinationStation a station and its platforms end the journey.
func (q *queryPlan) addDestinationStation(id graph.NodeID) error {
	platforms, err := q.overlay.Outgoing(id, graph.EnterPlatform)
	if err != nil {
		return errors.Wrapf(err, "platforms of node %d", id)
	}
	q.destinations = append(q.destinations, id)
	for _, p := range platforms {
		q.destinations = append(q.destinations, p.To)
	}
	q.destStations = append(q.destStations, id)
	return nil
}

func (q *queryPlan) destinationNodes() []graph.NodeID {
	nodes := slices.Clone(q.destinations)
	slices.Sort(nodes)
	return slices.Compact(nodes)
}

// destinationRoutes handles of the routes dropping off at a destination station or one of its platforms.
func (q *queryPlan) destinationRoutes() ([]routes.RouteHandle, error) {
	seen := make(map[routes.RouteHandle]struct{})
	out := make([]routes.RouteHandle, 0)
	collect := func(location graph.NodeID) error {
		departs, err := q.overlay.Incoming(location, graph.Depart, graph.InterchangeDepart, graph.DiversionDepart)
		if err != nil {
			return errors.Wrapf(err, "routes into node %d", location)
		}
		for _, d := range departs {
			rs, err := q.overlay.Node(d.From)
			if err != nil {
				return err
			}
			h, err := q.js.routeIndex.IndexFor(routes.RouteID(rs.RouteID))
			if err != nil {
				return err
			}
			if _, ok := seen[h]; !ok {
				seen[h] = struct{}{}
				out = append(out, h)
			}
		}
		return nil
	}
	for _, s := range q.destStations {
		if err := collect(s); err != nil {
			return nil, err
		}
		platforms, err := q.overlay.Outgoing(s, graph.EnterPlatform)
		if err != nil {
			return nil, err
		}
		for _, p := range platforms {
			if err := collect(p.To); err != nil {
				return nil, err
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

func (q *queryPlan) target(kind selector.Kind) (selector.Target, error) {
	t := selector.Target{Locations: q.destCoords}
	if kind != selector.GridBased {
		return t, nil
	}
	if err := q.js.loadStations(q.overlay); err != nil {
		return t, err
	}
	cells := make([]h3.Cell, 0, len(q.destCoords))
	for _, s := range q.destStations {
		n, err := q.overlay.Node(s)
		if err != nil {
			return t, err
		}
		if c, ok := q.js.grid.StationCell(n.StationID); ok {
			cells = append(cells, c)
		}
	}
	for _, c := range q.destCoords {
		cells = append(cells, q.js.grid.CellFor(c))
	}
	t.Grid = q.js.grid
	t.Cells = q.js.grid.DistancesFrom(cells, geo.DefaultMaxGridRing)
	return t, nil
}

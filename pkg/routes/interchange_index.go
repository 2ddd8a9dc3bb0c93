package routes

import (
	"context"
	"iter"
	"log/slog"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/concurrent"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/metrics"
)

const (
	DefaultMaxDepth = 5
	// depth 0 is the route itself, never stored
	maxSupportedDepth = 32
)

// InterchangeAdjacency routes reachable from a route by one interchange.
type InterchangeAdjacency interface {
	DirectInterchanges(route RouteID) []RouteID
}

type InterchangeOptions struct {
	MaxDepth int
	Workers  int
	Metrics  *metrics.Metrics
}

func (o InterchangeOptions) withDefaults() InterchangeOptions {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxDepth > maxSupportedDepth {
		o.MaxDepth = maxSupportedDepth
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// InterchangeIndex minimum number of interchanges between every ordered pair of routes,
// one N x N bitmap layer per depth. a pair is set only in the layer of its first depth.
// immutable after build.
type InterchangeIndex struct {
	numberOfRoutes uint
	maxDepth       int
	layers         []*datastructure.IndexedBitmap
	// union of every stored layer
	resolved *datastructure.IndexedBitmap
	// transposed depth 1, column access for LinksAt
	directTransposed *datastructure.IndexedBitmap
	pairs            *RoutePairFactory
}

func newInterchangeIndex(numberOfRoutes uint, maxDepth int) *InterchangeIndex {
	return &InterchangeIndex{
		numberOfRoutes: numberOfRoutes,
		maxDepth:       maxDepth,
		layers:         []*datastructure.IndexedBitmap{nil},
		resolved:       datastructure.NewSquareIndexedBitmap(numberOfRoutes),
		pairs:          NewRoutePairFactory(int(numberOfRoutes)),
	}
}

type rowResult struct {
	row  uint
	bits *datastructure.SimpleBitmap
	err  error
}

// BuildInterchangeIndex computes every layer from the direct interchange adjacency.
// rows of one layer are computed in parallel, a layer is complete before the next starts.
func BuildInterchangeIndex(ctx context.Context, index *RouteIndex, adjacency InterchangeAdjacency,
	opts InterchangeOptions) (*InterchangeIndex, error) {
	opts = opts.withDefaults()
	start := time.Now()

	n := uint(index.Size())
	ix := newInterchangeIndex(n, opts.MaxDepth)

	direct, err := ix.computeDirectLayer(index, adjacency, opts.Workers)
	if err != nil {
		return nil, err
	}
	ix.addLayer(direct)
	slog.Debug("interchange layer done", "depth", 1, "pairs", direct.Cardinality())

	directRows := make([]*datastructure.SimpleBitmap, n)
	for r := uint(0); r < n; r++ {
		directRows[r] = direct.Row(r)
	}

	for depth := 2; depth <= opts.MaxDepth; depth++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "building interchange index")
		default:
		}

		if ix.fullyConnected() {
			slog.Debug("interchange index fully connected", "depth", depth-1)
			break
		}

		layer := ix.computeLayer(depth, directRows, opts.Workers)
		if layer.Cardinality() == 0 {
			slog.Debug("interchange index reached fixed point", "depth", depth-1)
			break
		}
		ix.addLayer(layer)
		slog.Debug("interchange layer done", "depth", depth, "pairs", layer.Cardinality())
	}

	ix.finish()

	took := time.Since(start)
	opts.Metrics.ObserveInterchangeBuild(took)
	slog.Info("interchange index built", "routes", n, "depth", ix.Depth(),
		"connections", ix.NumberOfConnections(), "took", took)
	return ix, nil
}

func (ix *InterchangeIndex) computeDirectLayer(index *RouteIndex, adjacency InterchangeAdjacency, workers int) (*datastructure.IndexedBitmap, error) {
	n := ix.numberOfRoutes
	wp := concurrent.NewWorkerPool[concurrent.RouteRowParam, rowResult](workers, int(n))
	for r := uint(0); r < n; r++ {
		wp.AddJob(concurrent.NewRouteRowParam(1, r))
	}
	wp.Close()
	wp.Start(func(job concurrent.RouteRowParam) rowResult {
		from := index.RouteFor(RouteHandle(job.Row))
		bits := datastructure.NewSimpleBitmap(n)
		for _, to := range adjacency.DirectInterchanges(from) {
			h, err := index.IndexFor(to)
			if err != nil {
				return rowResult{row: job.Row, err: errors.Wrapf(err, "direct interchange from %q", from)}
			}
			if uint(h) != job.Row {
				bits.Set(uint(h))
			}
		}
		return rowResult{row: job.Row, bits: bits}
	})
	wp.Wait()

	layer := datastructure.NewSquareIndexedBitmap(n)
	var firstErr error
	for res := range wp.CollectResults() {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		layer.InsertRow(res.row, res.bits)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return layer, nil
}

// computeLayer row a = OR of direct rows of every L reached from a at depth-1, minus resolved pairs.
func (ix *InterchangeIndex) computeLayer(depth int, directRows []*datastructure.SimpleBitmap, workers int) *datastructure.IndexedBitmap {
	n := ix.numberOfRoutes
	previous := ix.layers[depth-1]

	wp := concurrent.NewWorkerPool[concurrent.RouteRowParam, rowResult](workers, int(n))
	for r := uint(0); r < n; r++ {
		wp.AddJob(concurrent.NewRouteRowParam(depth, r))
	}
	wp.Close()
	wp.Start(func(job concurrent.RouteRowParam) rowResult {
		bits := datastructure.NewSimpleBitmap(n)
		previous.Row(job.Row).ForEach(func(link uint) {
			bits.Or(directRows[link])
		})
		bits.AndNot(ix.resolved.Row(job.Row))
		if bits.Get(job.Row) {
			bits.Unset(job.Row)
		}
		return rowResult{row: job.Row, bits: bits}
	})
	wp.Wait()

	layer := datastructure.NewSquareIndexedBitmap(n)
	for res := range wp.CollectResults() {
		layer.InsertRow(res.row, res.bits)
	}
	return layer
}

func (ix *InterchangeIndex) addLayer(layer *datastructure.IndexedBitmap) {
	ix.layers = append(ix.layers, layer)
	ix.resolved.Or(layer)
}

func (ix *InterchangeIndex) finish() {
	if len(ix.layers) < 2 {
		ix.addLayer(datastructure.NewSquareIndexedBitmap(ix.numberOfRoutes))
	}
	ix.directTransposed = ix.layers[1].Transpose()
}

func (ix *InterchangeIndex) fullyConnected() bool {
	n := int(ix.numberOfRoutes)
	return ix.resolved.Cardinality() == n*(n-1)
}

func (ix *InterchangeIndex) checkHandle(h RouteHandle) {
	if uint(h) >= ix.numberOfRoutes {
		panic(errors.AssertionFailedf("route handle %d out of range [0, %d)", h, ix.numberOfRoutes))
	}
}

// MinInterchanges first depth connecting a to b. ok is false when b is unreachable from a.
func (ix *InterchangeIndex) MinInterchanges(a, b RouteHandle) (uint8, bool) {
	ix.checkHandle(a)
	ix.checkHandle(b)
	if a == b {
		return 0, true
	}
	if !ix.resolved.IsSet(uint(a), uint(b)) {
		return 0, false
	}
	for depth := 1; depth < len(ix.layers); depth++ {
		if ix.layers[depth].IsSet(uint(a), uint(b)) {
			return uint8(depth), true
		}
	}
	return 0, false
}

func (ix *InterchangeIndex) MinInterchangesForPair(pair *RouteIndexPair) (uint8, bool) {
	return ix.MinInterchanges(pair.First(), pair.Second())
}

// MinInterchangesByID same as MinInterchanges for route ids.
func (ix *InterchangeIndex) MinInterchangesByID(index *RouteIndex, a, b RouteID) (uint8, bool, error) {
	ha, err := index.IndexFor(a)
	if err != nil {
		return 0, false, err
	}
	hb, err := index.IndexFor(b)
	if err != nil {
		return 0, false, err
	}
	depth, ok := ix.MinInterchanges(ha, hb)
	return depth, ok, nil
}

// LinksAt routes L with (a, L) at depth-1 and (L, b) direct. empty unless depth is the depth of (a, b).
func (ix *InterchangeIndex) LinksAt(a, b RouteHandle, depth int) *datastructure.SimpleBitmap {
	ix.checkHandle(a)
	ix.checkHandle(b)
	links := datastructure.NewSimpleBitmap(ix.numberOfRoutes)
	if depth < 1 || depth >= len(ix.layers) || !ix.layers[depth].IsSet(uint(a), uint(b)) {
		return links
	}
	if depth == 1 {
		links.Set(uint(a))
		return links
	}
	links.Or(ix.layers[depth-1].Row(uint(a)))
	links.And(ix.directTransposed.Row(uint(b)))
	return links
}

// Links every link route at the resolved depth of (a, b), ascending handle order.
func (ix *InterchangeIndex) Links(a, b RouteHandle) []RouteHandle {
	depth, ok := ix.MinInterchanges(a, b)
	if !ok || depth == 0 {
		return nil
	}
	bits := ix.LinksAt(a, b, int(depth)).SetBits()
	links := make([]RouteHandle, len(bits))
	for i, bit := range bits {
		links[i] = RouteHandle(bit)
	}
	return links
}

// LayerHasBit reports whether (a, b) is set in the layer of the given depth.
func (ix *InterchangeIndex) LayerHasBit(depth int, a, b RouteHandle) bool {
	if depth < 1 || depth >= len(ix.layers) {
		return false
	}
	return ix.layers[depth].IsSet(uint(a), uint(b))
}

// Depth deepest stored layer.
func (ix *InterchangeIndex) Depth() int {
	return len(ix.layers) - 1
}

func (ix *InterchangeIndex) MaxDepth() int {
	return ix.maxDepth
}

func (ix *InterchangeIndex) NumberOfRoutes() int {
	return int(ix.numberOfRoutes)
}

func (ix *InterchangeIndex) NumberOfConnections() int {
	return ix.resolved.Cardinality()
}

func (ix *InterchangeIndex) Pairs() *RoutePairFactory {
	return ix.pairs
}

// Records every stored pair, by depth then routeA then routeB.
func (ix *InterchangeIndex) Records() iter.Seq[InterchangeRecord] {
	return func(yield func(InterchangeRecord) bool) {
		for depth := 1; depth < len(ix.layers); depth++ {
			for a := uint(0); a < ix.numberOfRoutes; a++ {
				for _, b := range ix.layers[depth].Row(a).SetBits() {
					record := InterchangeRecord{
						Depth:    uint8(depth),
						RouteA:   RouteHandle(a),
						RouteB:   RouteHandle(b),
						Overlaps: ix.LinksAt(RouteHandle(a), RouteHandle(b), depth),
					}
					if !yield(record) {
						return
					}
				}
			}
		}
	}
}

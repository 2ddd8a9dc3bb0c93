package routes

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
)

// RouteIndexPair ordered pair of handles. instances are interned by RoutePairFactory and never mutated.
type RouteIndexPair struct {
	first  RouteHandle
	second RouteHandle
}

func (p *RouteIndexPair) First() RouteHandle {
	return p.first
}

func (p *RouteIndexPair) Second() RouteHandle {
	return p.second
}

func (p *RouteIndexPair) IsSame() bool {
	return p.first == p.second
}

func (p *RouteIndexPair) String() string {
	return fmt.Sprintf("RouteIndexPair{%d, %d}", p.first, p.second)
}

// RoutePairFactory interns pairs under rank = N*a + b.
// concurrent callers may both build a pair, LoadOrStore keeps exactly one visible.
type RoutePairFactory struct {
	numberOfRoutes uint32
	pairs          sync.Map
}

func NewRoutePairFactory(numberOfRoutes int) *RoutePairFactory {
	return &RoutePairFactory{numberOfRoutes: uint32(numberOfRoutes)}
}

func (f *RoutePairFactory) rank(a, b RouteHandle) uint32 {
	if uint32(a) >= f.numberOfRoutes || uint32(b) >= f.numberOfRoutes {
		panic(errors.AssertionFailedf("route pair (%d, %d) out of range [0, %d)", a, b, f.numberOfRoutes))
	}
	return f.numberOfRoutes*uint32(a) + uint32(b)
}

func (f *RoutePairFactory) Get(a, b RouteHandle) *RouteIndexPair {
	rank := f.rank(a, b)
	if pair, ok := f.pairs.Load(rank); ok {
		return pair.(*RouteIndexPair)
	}
	pair, _ := f.pairs.LoadOrStore(rank, &RouteIndexPair{first: a, second: b})
	return pair.(*RouteIndexPair)
}

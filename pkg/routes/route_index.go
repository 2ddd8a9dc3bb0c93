package routes

import (
	"log/slog"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
)

var (
	ErrUnknownRoute       = errors.New("unknown route")
	ErrRouteCountMismatch = errors.New("route count mismatch")
	ErrTooManyRoutes      = errors.New("too many routes")
)

type RouteID string

// RouteHandle dense route number in [0, N), valid for one RouteIndex only.
type RouteHandle uint16

const MaxRoutes = math.MaxUint16 + 1

type RouteRepository interface {
	AllRoutes() []RouteID
	NumberOfRoutes() int
}

// RouteIndex bijection between route ids and handles. read only after NewRouteIndex.
type RouteIndex struct {
	routes  []RouteID
	handles map[RouteID]RouteHandle
}

// NewRouteIndex numbers the repository routes in id order, identical data gives identical handles.
func NewRouteIndex(repo RouteRepository) (*RouteIndex, error) {
	all := repo.AllRoutes()

	ids := make([]RouteID, 0, len(all))
	seen := make(map[RouteID]struct{}, len(all))
	for _, id := range all {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if len(ids) != repo.NumberOfRoutes() {
		return nil, errors.Wrapf(ErrRouteCountMismatch, "repository reports %d routes but lists %d distinct",
			repo.NumberOfRoutes(), len(ids))
	}
	if len(ids) > MaxRoutes {
		return nil, errors.Wrapf(ErrTooManyRoutes, "%d routes, at most %d supported", len(ids), MaxRoutes)
	}

	handles := make(map[RouteID]RouteHandle, len(ids))
	for i, id := range ids {
		handles[id] = RouteHandle(i)
	}

	slog.Info("route index built", "routes", len(ids))
	return &RouteIndex{
		routes:  ids,
		handles: handles,
	}, nil
}

func (ri *RouteIndex) IndexFor(id RouteID) (RouteHandle, error) {
	h, ok := ri.handles[id]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownRoute, "route %q", id)
	}
	return h, nil
}

// MustIndexFor panics on an unknown route.
func (ri *RouteIndex) MustIndexFor(id RouteID) RouteHandle {
	h, err := ri.IndexFor(id)
	if err != nil {
		panic(err)
	}
	return h
}

func (ri *RouteIndex) RouteFor(h RouteHandle) RouteID {
	if int(h) >= len(ri.routes) {
		panic(errors.AssertionFailedf("route handle %d out of range [0, %d)", h, len(ri.routes)))
	}
	return ri.routes[h]
}

func (ri *RouteIndex) Size() int {
	return len(ri.routes)
}

func (ri *RouteIndex) Routes() []RouteID {
	out := make([]RouteID, len(ri.routes))
	copy(out, ri.routes)
	return out
}

// ValidateCount checks a persisted artifact was built against the same number of routes.
func (ri *RouteIndex) ValidateCount(n int) error {
	if n != len(ri.routes) {
		return errors.Wrapf(ErrRouteCountMismatch, "artifact has %d routes, index has %d", n, len(ri.routes))
	}
	return nil
}

package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/config"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/engine/search"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
	"github.com/lintang-b-s/transitplanner/pkg/kv"
	"github.com/lintang-b-s/transitplanner/pkg/metrics"
	"github.com/lintang-b-s/transitplanner/pkg/network"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
)

// Planner everything a journey search needs, loaded from one config.
type Planner struct {
	Network      *network.Network
	Graph        *graph.MemoryGraph
	RouteIndex   *routes.RouteIndex
	Interchanges *routes.InterchangeIndex
	Search       *search.JourneySearch
	// Persisted reports whether the index reached the cache
	Persisted bool

	closeCache func() error
}

// Open loads the network, compiles its graph and loads the interchange index from the cache,
// building and saving it when missing. rebuild drops any cached index first.
func Open(ctx context.Context, cfg config.Config, m *metrics.Metrics, rebuild bool) (*Planner, error) {
	start := time.Now()
	n, err := network.Load(cfg.Network.File)
	if err != nil {
		return nil, err
	}
	g, err := network.BuildGraph(n)
	if err != nil {
		return nil, err
	}
	idx, err := routes.NewRouteIndex(n)
	if err != nil {
		return nil, err
	}

	cache, closeCache, err := kv.OpenInterchangeCache(cfg.Cache.Backend, cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}
	opts := routes.InterchangeOptions{MaxDepth: cfg.Interchange.MaxDepth, Workers: cfg.Interchange.Workers, Metrics: m}
	ix, persisted, err := loadInterchanges(ctx, cache, n, idx, opts, rebuild)
	if err != nil {
		closeCache()
		return nil, errors.Wrap(err, "interchange index")
	}

	js := search.NewJourneySearch(g, idx, ix, search.WithMetrics(m), search.WithDefaults(cfg.Search))
	slog.Info("planner ready", "network", n.Name, "routes", idx.Size(), "interchangeDepth", ix.Depth(),
		"connections", ix.NumberOfConnections(), "took", time.Since(start))
	return &Planner{Network: n, Graph: g, RouteIndex: idx, Interchanges: ix, Search: js,
		Persisted: persisted, closeCache: closeCache}, nil
}

// loadInterchanges keys the index by the network fingerprint. a rebuilt index that cannot be
// saved is still returned, with persisted false.
func loadInterchanges(ctx context.Context, cache routes.InterchangeCache, n *network.Network, idx *routes.RouteIndex,
	opts routes.InterchangeOptions, rebuild bool) (ix *routes.InterchangeIndex, persisted bool, err error) {
	fingerprint, err := n.Fingerprint()
	if err != nil {
		return nil, false, err
	}
	if !rebuild {
		ix, err = routes.LoadOrBuildInterchangeIndex(ctx, cache, fingerprint, idx, n, opts)
		if err != nil {
			return nil, false, err
		}
		persisted, err = cache.Has(ctx, routes.ArtifactKey(fingerprint, idx.Size(), ix.MaxDepth()))
		if err != nil {
			slog.Warn("checking saved interchange index", "error", err)
		}
		return ix, persisted, nil
	}

	ix, err = routes.BuildInterchangeIndex(ctx, idx, n, opts)
	if err != nil {
		return nil, false, err
	}
	key := routes.ArtifactKey(fingerprint, idx.Size(), ix.MaxDepth())
	if err := cache.Save(ctx, key, ix.Records()); err != nil {
		slog.Error("saving interchange index", "key", key, "error", err)
		return ix, false, nil
	}
	return ix, true, nil
}

// StationLocation coordinate of a station, for journey polylines.
func (p *Planner) StationLocation(id string) (coord datastructure.Coordinate, ok bool) {
	s, ok := p.Network.Station(id)
	if !ok {
		return coord, false
	}
	return s.Location, true
}

func (p *Planner) Close() error {
	return p.closeCache()
}

package routes

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
)

var (
	ErrCorruptRecord = errors.New("corrupt interchange record")
)

// InterchangeRecord one resolved pair. Overlaps holds the link routes, {RouteA} at depth 1.
type InterchangeRecord struct {
	Depth    uint8
	RouteA   RouteHandle
	RouteB   RouteHandle
	Overlaps *datastructure.SimpleBitmap
}

type InterchangeCache interface {
	Has(ctx context.Context, key string) (bool, error)
	Save(ctx context.Context, key string, records iter.Seq[InterchangeRecord]) error
	Load(ctx context.Context, key string) iter.Seq2[InterchangeRecord, error]
}

// ArtifactKey scopes a host key by route count and depth so a differently shaped artifact is never read.
func ArtifactKey(key string, numberOfRoutes, maxDepth int) string {
	return fmt.Sprintf("interchange/%s/routes-%d/depth-%d", key, numberOfRoutes, maxDepth)
}

// NewInterchangeIndexFromRecords rebuilds the layers from persisted records.
func NewInterchangeIndexFromRecords(numberOfRoutes, maxDepth int, records iter.Seq2[InterchangeRecord, error]) (*InterchangeIndex, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	n := uint(numberOfRoutes)
	ix := newInterchangeIndex(n, maxDepth)

	layers := make([]*datastructure.IndexedBitmap, maxDepth+1)
	deepest := 0
	for record, err := range records {
		if err != nil {
			return nil, err
		}
		if err := validateRecord(record, n, maxDepth); err != nil {
			return nil, err
		}
		a, b := uint(record.RouteA), uint(record.RouteB)
		if ix.resolved.IsSet(a, b) {
			return nil, errors.Wrapf(ErrCorruptRecord, "duplicate pair (%d, %d)", a, b)
		}
		depth := int(record.Depth)
		if layers[depth] == nil {
			layers[depth] = datastructure.NewSquareIndexedBitmap(n)
		}
		layers[depth].Set(a, b)
		ix.resolved.Set(a, b)
		if depth > deepest {
			deepest = depth
		}
	}

	for depth := 1; depth <= deepest; depth++ {
		if layers[depth] == nil {
			return nil, errors.Wrapf(ErrCorruptRecord, "missing layer %d below deepest layer %d", depth, deepest)
		}
		ix.layers = append(ix.layers, layers[depth])
	}
	ix.finish()

	// every pair above depth 1 must be explained by at least one link
	for depth := 2; depth <= ix.Depth(); depth++ {
		var inconsistent error
		ix.layers[depth].ForEach(func(a, b uint) {
			if inconsistent == nil && ix.LinksAt(RouteHandle(a), RouteHandle(b), depth).IsEmpty() {
				inconsistent = errors.Wrapf(ErrCorruptRecord, "pair (%d, %d) at depth %d has no link", a, b, depth)
			}
		})
		if inconsistent != nil {
			return nil, inconsistent
		}
	}
	return ix, nil
}

func validateRecord(record InterchangeRecord, n uint, maxDepth int) error {
	if uint(record.RouteA) >= n || uint(record.RouteB) >= n {
		return errors.Wrapf(ErrCorruptRecord, "pair (%d, %d) out of range [0, %d)", record.RouteA, record.RouteB, n)
	}
	if record.RouteA == record.RouteB {
		return errors.Wrapf(ErrCorruptRecord, "same route pair (%d, %d)", record.RouteA, record.RouteB)
	}
	if record.Depth < 1 || int(record.Depth) > maxDepth {
		return errors.Wrapf(ErrCorruptRecord, "depth %d out of range [1, %d]", record.Depth, maxDepth)
	}
	return nil
}

// LoadOrBuildInterchangeIndex loads the artifact under key when present, otherwise builds and saves it.
// a failed or inconsistent load falls back to a build, a failed save is only logged.
func LoadOrBuildInterchangeIndex(ctx context.Context, cache InterchangeCache, key string, index *RouteIndex,
	adjacency InterchangeAdjacency, opts InterchangeOptions) (*InterchangeIndex, error) {
	opts = opts.withDefaults()
	artifactKey := ArtifactKey(key, index.Size(), opts.MaxDepth)

	if cache != nil {
		has, err := cache.Has(ctx, artifactKey)
		switch {
		case err != nil:
			opts.Metrics.CacheLookup("error")
			slog.Warn("interchange cache lookup failed, rebuilding", "key", artifactKey, "error", err)
		case has:
			ix, err := NewInterchangeIndexFromRecords(index.Size(), opts.MaxDepth, cache.Load(ctx, artifactKey))
			if err == nil {
				opts.Metrics.CacheLookup("hit")
				slog.Info("interchange index loaded from cache", "key", artifactKey,
					"depth", ix.Depth(), "connections", ix.NumberOfConnections())
				return ix, nil
			}
			opts.Metrics.CacheLookup("error")
			slog.Warn("interchange cache load failed, rebuilding", "key", artifactKey, "error", err)
		default:
			opts.Metrics.CacheLookup("miss")
		}
	}

	ix, err := BuildInterchangeIndex(ctx, index, adjacency, opts)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Save(ctx, artifactKey, ix.Records()); err != nil {
			slog.Error("saving interchange index failed", "key", artifactKey, "error", err)
		}
	}
	return ix, nil
}

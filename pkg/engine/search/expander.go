package search

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/engine/selector"
	"github.com/lintang-b-s/transitplanner/pkg/engine/states"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
	"github.com/lintang-b-s/transitplanner/pkg/metrics"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
)

const (
	pruneWait         = "wait"
	pruneDeparted     = "departed"
	pruneHour         = "hour"
	pruneService      = "service"
	pruneMode         = "mode"
	pruneChanges      = "changes"
	pruneInterchanges = "interchanges"
	pruneDuration     = "duration"
	pruneWalking      = "walking"
	pruneLoop         = "loop"
	pruneRejoin       = "rejoin"
	pruneDominated    = "dominated"
	pruneMissingTrip  = "missing_trip"
)

type found struct {
	cost    time.Duration
	changes int
}

// expander expands traversal states for the branch selectors, skipping relationships that
// cannot lead to an acceptable journey.
type expander struct {
	machine      *states.Machine
	tx           graph.Transaction
	routeIndex   *routes.RouteIndex
	interchanges *routes.InterchangeIndex
	destRoutes   []routes.RouteHandle
	opts         Options
	metrics      *metrics.Metrics
	found        []found
}

func (e *expander) Expand(b selector.Branch) (selector.Branch, bool, error) {
	s := b.(*states.TraversalState)
	for {
		rel, ok := s.NextOutbound()
		if !ok {
			return nil, false, nil
		}
		node, err := e.tx.Node(rel.To)
		if err != nil {
			return nil, false, errors.Wrapf(err, "following %s from node %d", rel.Type, s.Node())
		}
		if reason := e.prune(s, rel, node); reason != "" {
			e.metrics.Pruned(reason)
			continue
		}

		next, err := e.machine.Next(s, rel, node)
		if errors.Is(err, states.ErrMissingTripID) {
			slog.Warn("skipping minute node without trip id", "node", node.ID, "error", err)
			e.metrics.Pruned(pruneMissingTrip)
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	}
}

func (e *expander) Release(b selector.Branch) {
	e.machine.Arena().Release(b.(*states.TraversalState).Index())
}

func (e *expander) recordFound(s *states.TraversalState) {
	e.found = append(e.found, found{cost: s.TotalCost(), changes: s.Journey().NumberOfChanges()})
}

// prune reason following rel from s into node must not be expanded, empty when it may.
func (e *expander) prune(s *states.TraversalState, rel graph.Relationship, node graph.Node) string {
	j := s.JourneyState()
	cost := e.machine.EdgeCost(s, rel)
	if cost < 0 {
		return pruneDeparted
	}
	total := s.TotalCost() + cost
	if total > e.opts.MaxJourneyDuration {
		return pruneDuration
	}
	for _, f := range e.found {
		if total > f.cost && j.NumberOfChanges() >= f.changes {
			return pruneDominated
		}
	}

	switch rel.Type {
	case graph.ToMinute:
		if j.CurrentTrip() == "" {
			if cost > e.opts.MaxWait {
				return pruneWait
			}
			if j.AlreadyDeparted(rel.TripID) {
				return pruneRejoin
			}
		}
	case graph.ToHour:
		clock := j.JourneyClock()
		first := datastructure.NewTramTime(rel.Hour, 0)
		last := datastructure.NewTramTime(rel.Hour, 59)
		if last.IsBefore(clock) || first.IsAfter(clock.Plus(e.opts.MaxWait)) {
			return pruneHour
		}
	case graph.ToService:
		if !node.Calendar.RunsOn(e.machine.Ops().Date()) {
			return pruneService
		}
	case graph.Board, graph.InterchangeBoard:
		if reason := e.pruneBoarding(s, node); reason != "" {
			return reason
		}
	}

	if node.Labels.Has(graph.QueryNode) && j.NumberOfWalkingConnections() >= e.opts.MaxWalkingConnections {
		return pruneWalking
	}
	if isLocation(node) && j.HasVisited(node.ID) {
		return pruneLoop
	}
	return ""
}

func (e *expander) pruneBoarding(s *states.TraversalState, node graph.Node) string {
	if !e.opts.modeAllowed(node.Mode) {
		return pruneMode
	}
	// changes once this vehicle is boarded
	changes := len(s.JourneyState().RoutesBoarded())
	if changes > e.opts.MaxChanges {
		return pruneChanges
	}
	if e.interchanges == nil || len(e.destRoutes) == 0 {
		return ""
	}
	handle, err := e.routeIndex.IndexFor(routes.RouteID(node.RouteID))
	if err != nil {
		// boarding fails with the same error, let the machine report it
		return ""
	}
	remaining := e.opts.MaxChanges - changes
	if remaining > e.interchanges.Depth() && e.interchanges.Depth() >= e.interchanges.MaxDepth() {
		// unresolved pairs may connect past the deepest layer
		return ""
	}
	for _, dest := range e.destRoutes {
		if depth, ok := e.interchanges.MinInterchanges(handle, dest); ok && int(depth) <= remaining {
			return ""
		}
	}
	return pruneInterchanges
}

func isLocation(node graph.Node) bool {
	return node.Labels.Has(graph.Station) || node.Labels.Has(graph.Grouped) || node.Labels.Has(graph.QueryNode)
}

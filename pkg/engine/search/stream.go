package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/lintang-b-s/transitplanner/pkg/engine/selector"
	"github.com/lintang-b-s/transitplanner/pkg/engine/states"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
	"github.com/lintang-b-s/transitplanner/pkg/metrics"
)

type Outcome uint8

const (
	OutcomeRunning Outcome = iota
	OutcomeFound
	OutcomeExhausted
	OutcomeBudgetExceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRunning:
		return "running"
	case OutcomeFound:
		return "found"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeBudgetExceeded:
		return "budget_exceeded"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Describe human readable outcome.
func (o Outcome) Describe() string {
	switch o {
	case OutcomeFound:
		return "journeys found"
	case OutcomeExhausted:
		return "no journey exists"
	case OutcomeBudgetExceeded:
		return "no journey within budget"
	case OutcomeFailed:
		return "search failed"
	}
	return "search running"
}

// JourneyStream journeys of one search in the order they are found. not safe for concurrent use.
type JourneyStream struct {
	ctx      context.Context
	tx       graph.Transaction
	machine  *states.Machine
	expander *expander
	selector selector.BranchSelector
	opts     Options
	metrics  *metrics.Metrics

	started  time.Time
	deadline time.Time
	visits   int
	yielded  int
	ended    Outcome
	err      error
}

func newJourneyStream(ctx context.Context, tx graph.Transaction, machine *states.Machine, exp *expander,
	sel selector.BranchSelector, opts Options, m *metrics.Metrics) *JourneyStream {
	now := time.Now()
	return &JourneyStream{
		ctx:      ctx,
		tx:       tx,
		machine:  machine,
		expander: exp,
		selector: sel,
		opts:     opts,
		metrics:  m,
		started:  now,
		deadline: now.Add(opts.Timeout),
	}
}

// Next the next journey, false once the stream has ended. see Err and Outcome for why.
func (js *JourneyStream) Next() (Journey, bool) {
	for js.ended == OutcomeRunning {
		if err := js.ctx.Err(); err != nil {
			js.fail(err)
			break
		}
		if js.visits >= js.opts.MaxNodeVisits || time.Now().After(js.deadline) {
			js.end(OutcomeBudgetExceeded)
			break
		}

		b, ok, err := js.selector.Next()
		if err != nil {
			js.fail(err)
			break
		}
		if !ok {
			js.end(OutcomeExhausted)
			break
		}
		js.visits++

		s := b.(*states.TraversalState)
		if !s.IsDestination() {
			continue
		}
		journey := newJourney(js.machine.Arena().Path(s.Index()))
		js.expander.recordFound(s)
		js.yielded++
		if js.yielded >= js.opts.MaxResults {
			js.end(OutcomeFound)
		}
		return journey, true
	}
	return Journey{}, false
}

// Collect up to max journeys, every remaining journey when max <= 0.
func (js *JourneyStream) Collect(max int) []Journey {
	out := make([]Journey, 0)
	for max <= 0 || len(out) < max {
		j, ok := js.Next()
		if !ok {
			break
		}
		out = append(out, j)
	}
	return out
}

func (js *JourneyStream) Err() error {
	return js.err
}

// Outcome OutcomeFound once a journey was produced, otherwise why the stream ended.
func (js *JourneyStream) Outcome() Outcome {
	if js.yielded > 0 && js.ended != OutcomeFailed {
		return OutcomeFound
	}
	return js.ended
}

func (js *JourneyStream) NodesVisited() int {
	return js.visits
}

// Close ends the stream early.
func (js *JourneyStream) Close() {
	if js.ended == OutcomeRunning {
		js.end(OutcomeExhausted)
	}
}

func (js *JourneyStream) fail(err error) {
	js.err = err
	js.end(OutcomeFailed)
}

func (js *JourneyStream) end(o Outcome) {
	js.ended = o
	js.tx.Close()
	took := time.Since(js.started)
	js.metrics.ObserveSearch(js.Outcome().String(), js.visits, took)
	if js.err != nil {
		slog.Warn("journey search failed", "error", js.err, "nodesVisited", js.visits, "took", took)
		return
	}
	slog.Debug("journey search ended", "outcome", js.Outcome(), "journeys", js.yielded,
		"nodesVisited", js.visits, "liveStates", js.machine.Arena().Live(), "took", took)
}

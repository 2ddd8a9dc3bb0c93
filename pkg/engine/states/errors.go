package states

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
)

var (
	// ErrMissingTripID minute node without a trip, a data quality problem of the graph.
	ErrMissingTripID = errors.New("minute node has no trip id")
)

// NextStateNotFoundError no transition is registered between two state types.
type NextStateNotFoundError struct {
	From StateType
	To   StateType
}

func (e *NextStateNotFoundError) Error() string {
	return fmt.Sprintf("no transition registered from %s to %s", e.From, e.To)
}

// UnexpectedLabelsError node labels that do not name exactly one known role.
type UnexpectedLabelsError struct {
	Node   graph.NodeID
	Labels graph.Labels
}

func (e *UnexpectedLabelsError) Error() string {
	return fmt.Sprintf("node %d has unexpected labels %s", e.Node, e.Labels)
}

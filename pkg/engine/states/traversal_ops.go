package states

import (
	"slices"
	"time"

	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
)

// TraversalOps graph access of one query: relationships available on the query date, and
// destination membership.
type TraversalOps struct {
	tx                      graph.Transaction
	routeIndex              *routes.RouteIndex
	date                    time.Time
	destinations            map[graph.NodeID]struct{}
	changeAtInterchangeOnly bool
}

func NewTraversalOps(tx graph.Transaction, routeIndex *routes.RouteIndex, date time.Time,
	destinations []graph.NodeID, changeAtInterchangeOnly bool) *TraversalOps {
	dest := make(map[graph.NodeID]struct{}, len(destinations))
	for _, d := range destinations {
		dest[d] = struct{}{}
	}
	return &TraversalOps{
		tx:                      tx,
		routeIndex:              routeIndex,
		date:                    datastructure.TruncateDate(date),
		destinations:            dest,
		changeAtInterchangeOnly: changeAtInterchangeOnly,
	}
}

func (o *TraversalOps) Date() time.Time {
	return o.date
}

func (o *TraversalOps) Tx() graph.Transaction {
	return o.tx
}

func (o *TraversalOps) IsDestination(id graph.NodeID) bool {
	_, ok := o.destinations[id]
	return ok
}

// outgoing relationships of id with one of types that are available on the query date.
func (o *TraversalOps) outgoing(id graph.NodeID, types ...graph.RelationshipType) ([]graph.Relationship, error) {
	rels, err := o.tx.Outgoing(id, types...)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(rels, func(r graph.Relationship) bool {
		return !r.AvailableOn(o.date)
	}), nil
}

// outgoingExcept like outgoing, without relationships ending at exclude.
func (o *TraversalOps) outgoingExcept(id, exclude graph.NodeID, types ...graph.RelationshipType) ([]graph.Relationship, error) {
	rels, err := o.outgoing(id, types...)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(rels, func(r graph.Relationship) bool {
		return r.To == exclude
	}), nil
}

func (o *TraversalOps) hasServiceOutbound(id graph.NodeID, serviceID string) (bool, error) {
	rels, err := o.tx.Outgoing(id, graph.ToService)
	if err != nil {
		return false, err
	}
	for _, r := range rels {
		if r.ServiceID == serviceID {
			return true, nil
		}
	}
	return false, nil
}

func boardingTypes(station graph.Node) []graph.RelationshipType {
	if station.Labels.Has(graph.HasPlatforms) {
		return []graph.RelationshipType{graph.EnterPlatform}
	}
	return []graph.RelationshipType{graph.Board, graph.InterchangeBoard}
}

var departTypes = []graph.RelationshipType{graph.Depart, graph.InterchangeDepart, graph.DiversionDepart}

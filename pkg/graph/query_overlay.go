package graph

import (
	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
)

// QueryOverlay adds per query nodes and relationships on top of a transaction.
// overlay nodes have negative ids and are never visible to other transactions.
type QueryOverlay struct {
	Transaction
	nodes   map[NodeID]Node
	out     map[NodeID][]Relationship
	in      map[NodeID][]Relationship
	nextID  NodeID
	nextRel RelationshipID
}

func NewQueryOverlay(tx Transaction) *QueryOverlay {
	return &QueryOverlay{
		Transaction: tx,
		nodes:       make(map[NodeID]Node),
		out:         make(map[NodeID][]Relationship),
		in:          make(map[NodeID][]Relationship),
		nextID:      -1,
		nextRel:     -1,
	}
}

func (o *QueryOverlay) AddQueryNode(loc datastructure.Coordinate) NodeID {
	id := o.nextID
	o.nextID--
	o.nodes[id] = Node{ID: id, Labels: QueryNode, Location: loc}
	return id
}

func (o *QueryOverlay) AddRelationship(r Relationship) RelationshipID {
	r.ID = o.nextRel
	o.nextRel--
	o.out[r.From] = append(o.out[r.From], r)
	o.in[r.To] = append(o.in[r.To], r)
	return r.ID
}

func (o *QueryOverlay) Node(id NodeID) (Node, error) {
	if n, ok := o.nodes[id]; ok {
		return n, nil
	}
	if id < 0 {
		return Node{}, errors.Wrapf(ErrNodeNotFound, "query node %d", id)
	}
	return o.Transaction.Node(id)
}

func (o *QueryOverlay) merge(base []Relationship, extra []Relationship, types []RelationshipType) []Relationship {
	for _, rel := range extra {
		if matchesType(rel.Type, types) {
			base = append(base, rel)
		}
	}
	return base
}

func (o *QueryOverlay) Outgoing(id NodeID, types ...RelationshipType) ([]Relationship, error) {
	var base []Relationship
	if id >= 0 {
		rels, err := o.Transaction.Outgoing(id, types...)
		if err != nil {
			return nil, err
		}
		base = rels
	}
	return o.merge(base, o.out[id], types), nil
}

func (o *QueryOverlay) Incoming(id NodeID, types ...RelationshipType) ([]Relationship, error) {
	var base []Relationship
	if id >= 0 {
		rels, err := o.Transaction.Incoming(id, types...)
		if err != nil {
			return nil, err
		}
		base = rels
	}
	return o.merge(base, o.in[id], types), nil
}

package graph

import (
	"github.com/cockroachdb/errors"
)

// MemoryGraph adjacency list graph, read only once built. concurrent transactions are safe.
type MemoryGraph struct {
	nodes         []Node
	relationships []Relationship
	outEdges      [][]int32
	inEdges       [][]int32
	locations     map[string]NodeID
	stations      []NodeID
}

func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodes:         make([]Node, 0),
		relationships: make([]Relationship, 0),
		outEdges:      make([][]int32, 0),
		inEdges:       make([][]int32, 0),
		locations:     make(map[string]NodeID),
	}
}

func (g *MemoryGraph) AddNode(n Node) NodeID {
	n.ID = NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.outEdges = append(g.outEdges, nil)
	g.inEdges = append(g.inEdges, nil)
	if n.Labels.Has(Station) {
		g.stations = append(g.stations, n.ID)
	}
	return n.ID
}

func (g *MemoryGraph) AddRelationship(r Relationship) RelationshipID {
	if int(r.From) >= len(g.nodes) || int(r.To) >= len(g.nodes) || r.From < 0 || r.To < 0 {
		panic(errors.AssertionFailedf("relationship %s %d->%d references unknown node", r.Type, r.From, r.To))
	}
	r.ID = RelationshipID(len(g.relationships))
	g.relationships = append(g.relationships, r)
	g.outEdges[r.From] = append(g.outEdges[r.From], int32(r.ID))
	g.inEdges[r.To] = append(g.inEdges[r.To], int32(r.ID))
	return r.ID
}

func (g *MemoryGraph) RegisterLocation(locationID string, node NodeID) {
	g.locations[locationID] = node
}

func (g *MemoryGraph) NumberOfNodes() int {
	return len(g.nodes)
}

func (g *MemoryGraph) NumberOfRelationships() int {
	return len(g.relationships)
}

func (g *MemoryGraph) BeginTx() (Transaction, error) {
	return &memoryTx{g: g}, nil
}

type memoryTx struct {
	g *MemoryGraph
}

func (tx *memoryTx) Node(id NodeID) (Node, error) {
	if id < 0 || int(id) >= len(tx.g.nodes) {
		return Node{}, errors.Wrapf(ErrNodeNotFound, "node %d", id)
	}
	return tx.g.nodes[id], nil
}

func (tx *memoryTx) collect(edges [][]int32, id NodeID, types []RelationshipType) ([]Relationship, error) {
	if id < 0 || int(id) >= len(tx.g.nodes) {
		return nil, errors.Wrapf(ErrNodeNotFound, "node %d", id)
	}
	out := make([]Relationship, 0, len(edges[id]))
	for _, edgeID := range edges[id] {
		rel := tx.g.relationships[edgeID]
		if matchesType(rel.Type, types) {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (tx *memoryTx) Outgoing(id NodeID, types ...RelationshipType) ([]Relationship, error) {
	return tx.collect(tx.g.outEdges, id, types)
}

func (tx *memoryTx) Incoming(id NodeID, types ...RelationshipType) ([]Relationship, error) {
	return tx.collect(tx.g.inEdges, id, types)
}

func (tx *memoryTx) LocationNode(locationID string) (NodeID, bool) {
	id, ok := tx.g.locations[locationID]
	return id, ok
}

func (tx *memoryTx) Stations() []Node {
	out := make([]Node, len(tx.g.stations))
	for i, id := range tx.g.stations {
		out[i] = tx.g.nodes[id]
	}
	return out
}

func (tx *memoryTx) Close() {}

package search

import (
	"cmp"
	"slices"
	"time"

	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/engine/states"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
)

type StageKind uint8

const (
	VehicleStage StageKind = iota
	WalkStage
	ConnectStage
)

func (k StageKind) String() string {
	switch k {
	case VehicleStage:
		return "vehicle"
	case WalkStage:
		return "walk"
	case ConnectStage:
		return "connect"
	}
	return "unknown"
}

// Stage one leg of a journey. From or To is empty on a walk to or from a coordinate.
type Stage struct {
	Kind     StageKind
	Mode     datastructure.TransportMode
	Route    routes.RouteID
	Trip     string
	From     string
	To       string
	DepartAt datastructure.TramTime
	ArriveAt datastructure.TramTime
}

type Journey struct {
	DepartAt           datastructure.TramTime
	ArriveAt           datastructure.TramTime
	Changes            int
	WalkingConnections int
	Stations           []string
	Routes             []routes.RouteID
	Trips              []string
	Stages             []Stage
	Path               []graph.NodeID
}

func (j Journey) Duration() time.Duration {
	return j.DepartAt.Between(j.ArriveAt)
}

// Polyline encoded polyline through the journey's stations. stations lookup cannot place are skipped.
func (j Journey) Polyline(lookup func(stationID string) (datastructure.Coordinate, bool)) string {
	coords := make([]datastructure.Coordinate, 0, len(j.Stations))
	for _, id := range j.Stations {
		if c, ok := lookup(id); ok {
			coords = append(coords, c)
		}
	}
	return datastructure.CreatePolyline(coords)
}

// SortJourneys earliest arrival first, then fewest changes.
func SortJourneys(journeys []Journey) {
	slices.SortStableFunc(journeys, func(a, b Journey) int {
		if c := cmp.Compare(a.ArriveAt, b.ArriveAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Changes, b.Changes)
	})
}

func isDepart(t graph.RelationshipType) bool {
	return t == graph.Depart || t == graph.InterchangeDepart || t == graph.DiversionDepart
}

// newJourney maps the states from the root to a destination state onto a journey.
func newJourney(path []*states.TraversalState) Journey {
	dest := path[len(path)-1]
	view := dest.Journey()
	j := Journey{
		ArriveAt:           view.JourneyClock(),
		Changes:            view.NumberOfChanges(),
		WalkingConnections: view.NumberOfWalkingConnections(),
		Stations:           make([]string, 0),
		Routes:             make([]routes.RouteID, 0),
		Trips:              make([]string, 0),
		Stages:             make([]Stage, 0),
		Path:               make([]graph.NodeID, 0, len(path)),
	}

	seen := make(map[string]struct{})
	var riding *Stage
	for i, s := range path {
		node := s.GraphNode()
		if node.ID == graph.NoNode {
			continue
		}
		if s.IsDestination() {
			break
		}
		j.Path = append(j.Path, node.ID)
		if node.Labels.Has(graph.Station) || node.Labels.Has(graph.Platform) || node.Labels.Has(graph.RouteStation) {
			if _, ok := seen[node.StationID]; !ok {
				seen[node.StationID] = struct{}{}
				j.Stations = append(j.Stations, node.StationID)
			}
		}

		clock := s.Journey().JourneyClock()
		var previous graph.Node
		var previousClock datastructure.TramTime
		if i > 0 {
			previous = path[i-1].GraphNode()
			previousClock = path[i-1].Journey().JourneyClock()
		}

		switch {
		case s.Type() == states.Minute && riding == nil:
			riding = &Stage{
				Kind:     VehicleStage,
				Mode:     s.Mode(),
				Route:    routes.RouteID(node.RouteID),
				Trip:     s.TripID(),
				From:     node.StationID,
				DepartAt: clock,
			}
		case isDepart(s.Via().Type) && riding != nil:
			riding.To = node.StationID
			riding.ArriveAt = clock
			j.Stages = append(j.Stages, *riding)
			j.Routes = append(j.Routes, riding.Route)
			j.Trips = append(j.Trips, riding.Trip)
			riding = nil
		case s.Via().Type == graph.WalksToStation:
			j.Stages = append(j.Stages, Stage{Kind: WalkStage, Mode: datastructure.Walk, To: node.StationID,
				DepartAt: previousClock, ArriveAt: clock})
		case s.Via().Type == graph.WalksFromStation:
			j.Stages = append(j.Stages, Stage{Kind: WalkStage, Mode: datastructure.Walk, From: previous.StationID,
				DepartAt: previousClock, ArriveAt: clock})
		case s.Via().Type == graph.Neighbour:
			j.Stages = append(j.Stages, Stage{Kind: ConnectStage, Mode: datastructure.Walk, From: previous.StationID,
				To: node.StationID, DepartAt: previousClock, ArriveAt: clock})
		}
	}

	j.DepartAt = j.ArriveAt
	if len(j.Stages) > 0 {
		j.DepartAt = j.Stages[0].DepartAt
	}
	return j
}

package network

import (
	"sort"

	"github.com/lintang-b-s/transitplanner/pkg/routes"
)

var (
	_ routes.RouteRepository      = (*Network)(nil)
	_ routes.InterchangeAdjacency = (*Network)(nil)
)

func (n *Network) AllRoutes() []routes.RouteID {
	ids := make([]routes.RouteID, 0, len(n.Routes))
	for _, r := range n.Routes {
		ids = append(ids, routes.RouteID(r.ID))
	}
	return ids
}

func (n *Network) NumberOfRoutes() int {
	return len(n.Routes)
}

// DirectInterchanges routes reachable with one change after riding route. A change can happen at
// any station the route drops off at, or at any station reached from there on foot through
// neighbour links and station groups.
func (n *Network) DirectInterchanges(route routes.RouteID) []routes.RouteID {
	found := make(map[string]struct{})
	for station := range n.dropOffs[string(route)] {
		for _, s := range n.transferStations(station) {
			for r := range n.pickUps[s] {
				found[r] = struct{}{}
			}
		}
	}
	delete(found, string(route))

	out := make([]routes.RouteID, 0, len(found))
	for r := range found {
		out = append(out, routes.RouteID(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// transferStations station itself and every station a traveller can walk to from it without
// boarding, in any number of neighbour or group steps.
func (n *Network) transferStations(station string) []string {
	seen := map[string]struct{}{station: {}}
	queue := []string{station}
	for i := 0; i < len(queue); i++ {
		s := queue[i]
		for _, links := range [][]string{n.neighbours[s], n.siblings[s]} {
			for _, next := range links {
				if _, ok := seen[next]; ok {
					continue
				}
				seen[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return queue
}

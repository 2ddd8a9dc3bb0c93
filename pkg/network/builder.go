package network

import (
	"log/slog"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/geo"
	"github.com/lintang-b-s/transitplanner/pkg/graph"
)

const defaultWalkingSpeedKmh = 4.5

type routeStationKey struct {
	route   string
	station string
}

type serviceKey struct {
	routeStation graph.NodeID
	service      string
}

type hourKey struct {
	service graph.NodeID
	hour    int
}

// stopSide a platform, or station when it has none, where a route station boards or alights.
type stopSide struct {
	routeStation graph.NodeID
	location     graph.NodeID
}

type graphBuilder struct {
	n *Network
	g *graph.MemoryGraph

	stationNodes  map[string]graph.NodeID
	platformNodes map[string]map[string]graph.NodeID
	routeStations map[routeStationKey]graph.NodeID
	rsKeys        map[graph.NodeID]routeStationKey
	serviceNodes  map[serviceKey]graph.NodeID
	hourNodes     map[hourKey]graph.NodeID
	calendars     map[string]*graph.Calendar
	closures      map[string]datastructure.DateRange

	boards  map[stopSide]struct{}
	departs map[stopSide]struct{}
}

// BuildGraph compiles the network into a time expanded in memory graph.
func BuildGraph(n *Network) (*graph.MemoryGraph, error) {
	if n.stations == nil {
		if err := n.Validate(); err != nil {
			return nil, err
		}
	}
	b := &graphBuilder{
		n:             n,
		g:             graph.NewMemoryGraph(),
		stationNodes:  make(map[string]graph.NodeID, len(n.Stations)),
		platformNodes: make(map[string]map[string]graph.NodeID),
		routeStations: make(map[routeStationKey]graph.NodeID),
		rsKeys:        make(map[graph.NodeID]routeStationKey),
		serviceNodes:  make(map[serviceKey]graph.NodeID),
		hourNodes:     make(map[hourKey]graph.NodeID),
		calendars:     make(map[string]*graph.Calendar, len(n.Services)),
		closures:      make(map[string]datastructure.DateRange, len(n.Closures)),
		boards:        make(map[stopSide]struct{}),
		departs:       make(map[stopSide]struct{}),
	}

	for _, c := range n.Closures {
		b.closures[c.Station] = datastructure.NewDateRange(c.Start, c.End)
	}
	for i := range n.Services {
		s := &n.Services[i]
		days, err := s.calendarDays()
		if err != nil {
			return nil, err
		}
		b.calendars[s.ID] = &graph.Calendar{Range: datastructure.NewDateRange(s.Start, s.End), Days: days}
	}

	b.addStations()
	b.addGroups()
	b.addNeighbours()
	for _, trip := range n.Trips {
		if err := b.addTrip(trip); err != nil {
			return nil, err
		}
	}
	b.addBoardingAndDeparts()
	if err := b.addDiversions(); err != nil {
		return nil, err
	}

	slog.Info("transport graph built", "network", n.Name,
		"nodes", b.g.NumberOfNodes(), "relationships", b.g.NumberOfRelationships())
	return b.g, nil
}

func (b *graphBuilder) addStations() {
	for _, s := range b.n.Stations {
		labels := graph.Station
		if len(s.Platforms) > 0 {
			labels |= graph.HasPlatforms
		}
		if s.Interchange {
			labels |= graph.Interchange
		}
		id := b.g.AddNode(graph.Node{Labels: labels, StationID: s.ID, Location: s.Location})
		b.stationNodes[s.ID] = id
		b.g.RegisterLocation(s.ID, id)

		if len(s.Platforms) == 0 {
			continue
		}
		platforms := make(map[string]graph.NodeID, len(s.Platforms))
		for _, p := range s.Platforms {
			pid := b.g.AddNode(graph.Node{Labels: graph.Platform, StationID: s.ID, Location: s.Location})
			platforms[p] = pid
			b.g.AddRelationship(graph.Relationship{Type: graph.EnterPlatform, From: id, To: pid})
			b.g.AddRelationship(graph.Relationship{Type: graph.LeavePlatform, From: pid, To: id})
		}
		b.platformNodes[s.ID] = platforms
	}
}

func (b *graphBuilder) addGroups() {
	for _, grp := range b.n.Groups {
		locations := make([]datastructure.Coordinate, 0, len(grp.Stations))
		for _, sid := range grp.Stations {
			locations = append(locations, b.n.stations[sid].Location)
		}
		id := b.g.AddNode(graph.Node{Labels: graph.Grouped, StationID: grp.ID, Location: centroid(locations)})
		b.g.RegisterLocation(grp.ID, id)
		for _, sid := range grp.Stations {
			station := b.stationNodes[sid]
			b.g.AddRelationship(graph.Relationship{Type: graph.GroupedToChild, From: id, To: station})
			b.g.AddRelationship(graph.Relationship{Type: graph.GroupedToParent, From: station, To: id})
		}
	}
}

func centroid(locations []datastructure.Coordinate) datastructure.Coordinate {
	var lat, lon float64
	for _, l := range locations {
		lat += l.Lat
		lon += l.Lon
	}
	count := float64(len(locations))
	return datastructure.NewCoordinate(lat/count, lon/count)
}

func (b *graphBuilder) addNeighbours() {
	for _, nb := range b.n.Neighbours {
		cost := nb.Cost
		if cost == 0 {
			cost = geo.WalkingCost(b.n.stations[nb.From].Location, b.n.stations[nb.To].Location, defaultWalkingSpeedKmh)
		}
		from, to := b.stationNodes[nb.From], b.stationNodes[nb.To]
		b.g.AddRelationship(graph.Relationship{Type: graph.Neighbour, From: from, To: to, Cost: cost})
		b.g.AddRelationship(graph.Relationship{Type: graph.Neighbour, From: to, To: from, Cost: cost})
	}
}

func (b *graphBuilder) routeStation(route, station string) graph.NodeID {
	key := routeStationKey{route: route, station: station}
	if id, ok := b.routeStations[key]; ok {
		return id
	}
	s := b.n.stations[station]
	labels := graph.RouteStation
	if s.Interchange {
		labels |= graph.Interchange
	}
	id := b.g.AddNode(graph.Node{
		Labels:    labels,
		StationID: station,
		RouteID:   route,
		Mode:      b.n.routes[route].Mode,
		Location:  s.Location,
	})
	b.routeStations[key] = id
	b.rsKeys[id] = key
	return id
}

// stopLocation platform node a call uses, the first platform when the call names none.
func (b *graphBuilder) stopLocation(station, platform string) graph.NodeID {
	platforms, ok := b.platformNodes[station]
	if !ok {
		return b.stationNodes[station]
	}
	if platform == "" {
		platform = b.n.stations[station].Platforms[0]
	}
	return platforms[platform]
}

func (b *graphBuilder) serviceNode(routeStation graph.NodeID, route, station, service string) graph.NodeID {
	key := serviceKey{routeStation: routeStation, service: service}
	if id, ok := b.serviceNodes[key]; ok {
		return id
	}
	id := b.g.AddNode(graph.Node{
		Labels:    graph.Service,
		StationID: station,
		RouteID:   route,
		ServiceID: service,
		Calendar:  b.calendars[service],
	})
	b.g.AddRelationship(graph.Relationship{Type: graph.ToService, From: routeStation, To: id, ServiceID: service, RouteID: route})
	b.serviceNodes[key] = id
	return id
}

func (b *graphBuilder) hourNode(service graph.NodeID, route, station, serviceID string, hour int) graph.NodeID {
	key := hourKey{service: service, hour: hour}
	if id, ok := b.hourNodes[key]; ok {
		return id
	}
	id := b.g.AddNode(graph.Node{
		Labels:    graph.Hour,
		StationID: station,
		RouteID:   route,
		ServiceID: serviceID,
		Hour:      hour,
	})
	b.g.AddRelationship(graph.Relationship{Type: graph.ToHour, From: service, To: id, ServiceID: serviceID, Hour: hour})
	b.hourNodes[key] = id
	return id
}

func (b *graphBuilder) addTrip(trip Trip) error {
	stops := trip.Stops
	for i := 0; i < len(stops)-1; i++ {
		stop, next := stops[i], stops[i+1]
		rs := b.routeStation(trip.Route, stop.Station)
		nextRS := b.routeStation(trip.Route, next.Station)

		b.boards[stopSide{routeStation: rs, location: b.stopLocation(stop.Station, stop.Platform)}] = struct{}{}
		b.departs[stopSide{routeStation: nextRS, location: b.stopLocation(next.Station, next.Platform)}] = struct{}{}

		service := b.serviceNode(rs, trip.Route, stop.Station, trip.Service)
		hour := b.hourNode(service, trip.Route, stop.Station, trip.Service, stop.Depart.Hour())
		minute := b.g.AddNode(graph.Node{
			Labels:    graph.Minute,
			StationID: stop.Station,
			RouteID:   trip.Route,
			ServiceID: trip.Service,
			TripID:    trip.ID,
			Time:      stop.Depart,
		})
		b.g.AddRelationship(graph.Relationship{
			Type:      graph.ToMinute,
			From:      hour,
			To:        minute,
			TripID:    trip.ID,
			ServiceID: trip.Service,
			Time:      stop.Depart,
		})

		travel := stop.Depart.Between(next.Arrive)
		if travel < 0 {
			return errors.Newf("trip %s: negative travel time from %s to %s", trip.ID, stop.Station, next.Station)
		}
		b.g.AddRelationship(graph.Relationship{
			Type:    graph.TramGoesTo,
			From:    minute,
			To:      nextRS,
			TripID:  trip.ID,
			RouteID: trip.Route,
			Cost:    travel,
		})
	}
	return nil
}

// addBoardingAndDeparts in sorted order so identical networks build identical graphs.
func (b *graphBuilder) addBoardingAndDeparts() {
	for _, side := range sortedSides(b.boards) {
		key := b.rsKeys[side.routeStation]
		relType := graph.Board
		if b.n.stations[key.station].Interchange {
			relType = graph.InterchangeBoard
		}
		b.g.AddRelationship(graph.Relationship{
			Type:    relType,
			From:    side.location,
			To:      side.routeStation,
			RouteID: key.route,
			Closed:  b.closures[key.station],
		})
	}
	for _, side := range sortedSides(b.departs) {
		key := b.rsKeys[side.routeStation]
		relType := graph.Depart
		if b.n.stations[key.station].Interchange {
			relType = graph.InterchangeDepart
		}
		b.g.AddRelationship(graph.Relationship{
			Type:    relType,
			From:    side.routeStation,
			To:      side.location,
			RouteID: key.route,
			Closed:  b.closures[key.station],
		})
	}
}

func sortedSides(set map[stopSide]struct{}) []stopSide {
	sides := make([]stopSide, 0, len(set))
	for side := range set {
		sides = append(sides, side)
	}
	sort.Slice(sides, func(i, j int) bool {
		if sides[i].routeStation != sides[j].routeStation {
			return sides[i].routeStation < sides[j].routeStation
		}
		return sides[i].location < sides[j].location
	})
	return sides
}

func (b *graphBuilder) addDiversions() error {
	for _, d := range b.n.Diversions {
		rs, ok := b.routeStations[routeStationKey{route: d.Route, station: d.Station}]
		if !ok {
			return errors.Newf("diversion: route %s does not call at %s", d.Route, d.Station)
		}
		cost := d.Cost
		if cost == 0 {
			cost = geo.WalkingCost(b.n.stations[d.Station].Location, b.n.stations[d.To].Location, defaultWalkingSpeedKmh)
		}
		b.g.AddRelationship(graph.Relationship{
			Type:    graph.DiversionDepart,
			From:    rs,
			To:      b.stopLocation(d.To, ""),
			RouteID: d.Route,
			Cost:    cost,
			Valid:   datastructure.NewDateRange(d.Start, d.End),
			Closed:  b.closures[d.To],
		})
	}
	return nil
}

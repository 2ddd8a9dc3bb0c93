package network

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/util"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidNetwork = errors.New("invalid network")
)

// Network timetable description the transport graph is compiled from.
type Network struct {
	Name       string      `yaml:"name"`
	Stations   []Station   `yaml:"stations" validate:"required,min=1,dive"`
	Routes     []Route     `yaml:"routes" validate:"required,min=1,dive"`
	Services   []Service   `yaml:"services" validate:"dive"`
	Trips      []Trip      `yaml:"trips" validate:"dive"`
	Neighbours []Neighbour `yaml:"neighbours,omitempty" validate:"dive"`
	Groups     []Group     `yaml:"groups,omitempty" validate:"dive"`
	Diversions []Diversion `yaml:"diversions,omitempty" validate:"dive"`
	Closures   []Closure   `yaml:"closures,omitempty" validate:"dive"`

	stations   map[string]*Station
	routes     map[string]*Route
	services   map[string]*Service
	neighbours map[string][]string
	// stations sharing a group with each station
	siblings map[string][]string
	// stations each route drops off at, and routes picking up at each station
	dropOffs map[string]map[string]struct{}
	pickUps  map[string]map[string]struct{}
}

type Station struct {
	ID          string                   `yaml:"id" validate:"required"`
	Name        string                   `yaml:"name,omitempty"`
	Location    datastructure.Coordinate `yaml:"location"`
	Platforms   []string                 `yaml:"platforms,omitempty"`
	Interchange bool                     `yaml:"interchange,omitempty"`
}

type Route struct {
	ID   string                      `yaml:"id" validate:"required"`
	Name string                      `yaml:"name,omitempty"`
	Mode datastructure.TransportMode `yaml:"mode"`
}

type Service struct {
	ID    string    `yaml:"id" validate:"required"`
	Start time.Time `yaml:"start,omitempty"`
	End   time.Time `yaml:"end,omitempty"`
	// empty runs every day
	Days []string `yaml:"days,omitempty" validate:"dive,oneof=mon tue wed thu fri sat sun"`
}

type Trip struct {
	ID      string     `yaml:"id" validate:"required"`
	Route   string     `yaml:"route" validate:"required"`
	Service string     `yaml:"service" validate:"required"`
	Stops   []StopCall `yaml:"stops" validate:"required,min=2,dive"`
}

type StopCall struct {
	Station  string                 `yaml:"station" validate:"required"`
	Platform string                 `yaml:"platform,omitempty"`
	Arrive   datastructure.TramTime `yaml:"arrive"`
	Depart   datastructure.TramTime `yaml:"depart"`
}

// Neighbour walkable link between two stations, usable both ways.
type Neighbour struct {
	From string `yaml:"from" validate:"required"`
	To   string `yaml:"to" validate:"required,nefield=From"`
	// zero derives the cost from walking distance
	Cost time.Duration `yaml:"cost,omitempty" validate:"gte=0"`
}

type Group struct {
	ID       string   `yaml:"id" validate:"required"`
	Name     string   `yaml:"name,omitempty"`
	Stations []string `yaml:"stations" validate:"required,min=1"`
}

// Diversion extra departure of a route at a station, active between Start and End.
type Diversion struct {
	Route   string        `yaml:"route" validate:"required"`
	Station string        `yaml:"station" validate:"required"`
	To      string        `yaml:"to" validate:"required"`
	Cost    time.Duration `yaml:"cost,omitempty" validate:"gte=0"`
	Start   time.Time     `yaml:"start"`
	End     time.Time     `yaml:"end"`
}

// Closure no boarding or alighting at a station between Start and End.
type Closure struct {
	Station string    `yaml:"station" validate:"required"`
	Start   time.Time `yaml:"start"`
	End     time.Time `yaml:"end"`
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading network %s", path)
	}
	return Parse(data)
}

func Parse(data []byte) (*Network, error) {
	var n Network
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, errors.Wrap(err, "decoding network")
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

// Validate checks field constraints and cross references, then indexes the network.
func (n *Network) Validate() error {
	if err := util.ValidateStruct(n); err != nil {
		return errors.Mark(errors.Wrap(err, "network"), ErrInvalidNetwork)
	}
	if err := n.index(); err != nil {
		return errors.Mark(err, ErrInvalidNetwork)
	}
	return nil
}

func (n *Network) index() error {
	n.stations = make(map[string]*Station, len(n.Stations))
	for i := range n.Stations {
		s := &n.Stations[i]
		if _, dup := n.stations[s.ID]; dup {
			return errors.Newf("duplicate station %s", s.ID)
		}
		n.stations[s.ID] = s
	}
	n.routes = make(map[string]*Route, len(n.Routes))
	for i := range n.Routes {
		r := &n.Routes[i]
		if _, dup := n.routes[r.ID]; dup {
			return errors.Newf("duplicate route %s", r.ID)
		}
		n.routes[r.ID] = r
	}
	n.services = make(map[string]*Service, len(n.Services))
	for i := range n.Services {
		s := &n.Services[i]
		if _, dup := n.services[s.ID]; dup {
			return errors.Newf("duplicate service %s", s.ID)
		}
		n.services[s.ID] = s
	}

	n.dropOffs = make(map[string]map[string]struct{})
	n.pickUps = make(map[string]map[string]struct{})
	tripIDs := make(map[string]struct{}, len(n.Trips))
	for _, trip := range n.Trips {
		if _, dup := tripIDs[trip.ID]; dup {
			return errors.Newf("duplicate trip %s", trip.ID)
		}
		tripIDs[trip.ID] = struct{}{}
		if _, ok := n.routes[trip.Route]; !ok {
			return errors.Newf("trip %s: unknown route %s", trip.ID, trip.Route)
		}
		if _, ok := n.services[trip.Service]; !ok {
			return errors.Newf("trip %s: unknown service %s", trip.ID, trip.Service)
		}
		for i, stop := range trip.Stops {
			station, ok := n.stations[stop.Station]
			if !ok {
				return errors.Newf("trip %s: unknown station %s", trip.ID, stop.Station)
			}
			if stop.Platform != "" && !slices.Contains(station.Platforms, stop.Platform) {
				return errors.Newf("trip %s: station %s has no platform %s", trip.ID, stop.Station, stop.Platform)
			}
			if stop.Depart.IsBefore(stop.Arrive) {
				return errors.Newf("trip %s: departs %s before arriving at %s", trip.ID, stop.Station, stop.Arrive)
			}
			if i > 0 {
				prev := trip.Stops[i-1]
				if stop.Arrive.IsBefore(prev.Depart) {
					return errors.Newf("trip %s: arrives at %s before leaving %s", trip.ID, stop.Station, prev.Station)
				}
				addTo(n.dropOffs, trip.Route, stop.Station)
			}
			if i < len(trip.Stops)-1 {
				addTo(n.pickUps, stop.Station, trip.Route)
			}
		}
	}

	n.neighbours = make(map[string][]string)
	n.siblings = make(map[string][]string)
	for _, nb := range n.Neighbours {
		if err := n.checkStations("neighbour", nb.From, nb.To); err != nil {
			return err
		}
		n.neighbours[nb.From] = append(n.neighbours[nb.From], nb.To)
		n.neighbours[nb.To] = append(n.neighbours[nb.To], nb.From)
	}
	for _, g := range n.Groups {
		if _, clash := n.stations[g.ID]; clash {
			return errors.Newf("group %s clashes with a station id", g.ID)
		}
		if err := n.checkStations("group "+g.ID, g.Stations...); err != nil {
			return err
		}
		for _, a := range g.Stations {
			for _, b := range g.Stations {
				if a != b {
					n.siblings[a] = append(n.siblings[a], b)
				}
			}
		}
	}
	for _, d := range n.Diversions {
		if _, ok := n.routes[d.Route]; !ok {
			return errors.Newf("diversion: unknown route %s", d.Route)
		}
		if err := n.checkStations("diversion", d.Station, d.To); err != nil {
			return err
		}
		if d.End.Before(d.Start) {
			return errors.Newf("diversion of %s at %s ends before it starts", d.Route, d.Station)
		}
		addTo(n.dropOffs, d.Route, d.To)
	}
	closed := make(map[string]struct{}, len(n.Closures))
	for _, c := range n.Closures {
		if err := n.checkStations("closure", c.Station); err != nil {
			return err
		}
		if _, dup := closed[c.Station]; dup {
			return errors.Newf("closure: station %s closed more than once", c.Station)
		}
		closed[c.Station] = struct{}{}
	}
	return nil
}

func addTo(m map[string]map[string]struct{}, key, value string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[value] = struct{}{}
}

func (n *Network) checkStations(what string, ids ...string) error {
	for _, id := range ids {
		if _, ok := n.stations[id]; !ok {
			return errors.Newf("%s: unknown station %s", what, id)
		}
	}
	return nil
}

func (n *Network) Station(id string) (*Station, bool) {
	s, ok := n.stations[id]
	return s, ok
}

// Fingerprint stable hash of the description, used to key persisted artifacts.
func (n *Network) Fingerprint() (string, error) {
	data, err := yaml.Marshal(n)
	if err != nil {
		return "", errors.Wrap(err, "encoding network for fingerprint")
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

func (s *Service) calendarDays() (uint8, error) {
	if len(s.Days) == 0 {
		return 0x7f, nil
	}
	var days uint8
	for _, d := range s.Days {
		wd, ok := weekdays[d]
		if !ok {
			return 0, errors.Newf("service %s: unknown day %s", s.ID, d)
		}
		days |= 1 << uint(wd)
	}
	return days, nil
}

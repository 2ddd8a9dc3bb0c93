package search

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/engine/selector"
)

var (
	ErrInvalidRequest  = errors.New("invalid journey request")
	ErrUnknownLocation = errors.New("unknown location")
)

// Location a station or station group id, or a coordinate when ID is empty.
type Location struct {
	ID         string                    `yaml:"id" json:"id,omitempty" validate:"required_without=Coordinate"`
	Coordinate *datastructure.Coordinate `yaml:"coordinate" json:"coordinate,omitempty"`
}

func StationLocation(id string) Location {
	return Location{ID: id}
}

func CoordinateLocation(lat, lon float64) Location {
	c := datastructure.NewCoordinate(lat, lon)
	return Location{Coordinate: &c}
}

func (l Location) String() string {
	if l.ID != "" {
		return l.ID
	}
	if l.Coordinate == nil {
		return "<empty>"
	}
	return fmt.Sprintf("%.6f,%.6f", l.Coordinate.Lat, l.Coordinate.Lon)
}

type Options struct {
	MaxChanges              int                           `yaml:"maxChanges" validate:"min=0,max=16"`
	MaxWait                 time.Duration                 `yaml:"maxWait" validate:"min=0"`
	MaxJourneyDuration      time.Duration                 `yaml:"maxJourneyDuration" validate:"min=0"`
	MaxNodeVisits           int                           `yaml:"maxNodeVisits" validate:"min=0"`
	Timeout                 time.Duration                 `yaml:"timeout" validate:"min=0"`
	Selector                selector.Kind                 `yaml:"selector" validate:"omitempty,oneof=depth_first breadth_first grid"`
	MaxResults              int                           `yaml:"maxResults" validate:"min=0"`
	ChangeAtInterchangeOnly bool                          `yaml:"changeAtInterchangeOnly"`
	Modes                   []datastructure.TransportMode `yaml:"modes"`
	WalkingSpeed            float64                       `yaml:"walkingSpeed" validate:"min=0"` // km/h
	MaxWalkingConnections   int                           `yaml:"maxWalkingConnections" validate:"min=0"`
	NearbyRadius            float64                       `yaml:"nearbyRadius" validate:"min=0"` // meter
	MaxNearestStations      int                           `yaml:"maxNearestStations" validate:"min=0"`
}

func DefaultOptions() Options {
	return Options{
		MaxChanges:            3,
		MaxWait:               30 * time.Minute,
		MaxJourneyDuration:    3 * time.Hour,
		MaxNodeVisits:         200_000,
		Timeout:               5 * time.Second,
		Selector:              selector.BreadthFirstByDistance,
		MaxResults:            3,
		WalkingSpeed:          4.5,
		MaxWalkingConnections: 2,
		NearbyRadius:          1000,
		MaxNearestStations:    5,
	}
}

// WithDefaults zero fields take their default, MaxChanges and the flags are kept as given.
func (o Options) WithDefaults() Options {
	return o.fillFrom(DefaultOptions())
}

func (o Options) fillFrom(d Options) Options {
	if o.MaxWait == 0 {
		o.MaxWait = d.MaxWait
	}
	if o.MaxJourneyDuration == 0 {
		o.MaxJourneyDuration = d.MaxJourneyDuration
	}
	if o.MaxNodeVisits == 0 {
		o.MaxNodeVisits = d.MaxNodeVisits
	}
	if o.Timeout == 0 {
		o.Timeout = d.Timeout
	}
	if o.Selector == "" {
		o.Selector = d.Selector
	}
	if o.MaxResults == 0 {
		o.MaxResults = d.MaxResults
	}
	if len(o.Modes) == 0 {
		o.Modes = d.Modes
	}
	if o.WalkingSpeed == 0 {
		o.WalkingSpeed = d.WalkingSpeed
	}
	if o.MaxWalkingConnections == 0 {
		o.MaxWalkingConnections = d.MaxWalkingConnections
	}
	if o.NearbyRadius == 0 {
		o.NearbyRadius = d.NearbyRadius
	}
	if o.MaxNearestStations == 0 {
		o.MaxNearestStations = d.MaxNearestStations
	}
	return o
}

func (o Options) modeAllowed(mode datastructure.TransportMode) bool {
	if len(o.Modes) == 0 {
		return true
	}
	for _, m := range o.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

type SearchRequest struct {
	Origins      []Location             `validate:"required,min=1,dive"`
	Destinations []Location             `validate:"required,min=1,dive"`
	Date         time.Time              `validate:"required"`
	StartTime    datastructure.TramTime `validate:"min=0,lt=2880"`
	Options      Options
}

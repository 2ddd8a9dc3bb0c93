package graph

import (
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
)

var (
	ErrNodeNotFound = errors.New("node not found")
)

type NodeID int32

// NoNode stands for the node of a search root, before any origin is chosen.
const NoNode NodeID = math.MinInt32

type RelationshipID int32

// Labels set of structural node labels.
type Labels uint16

const (
	Station Labels = 1 << iota
	Platform
	RouteStation
	Service
	Hour
	Minute
	Grouped
	QueryNode
	// flags, only meaningful next to a role label
	Interchange
	HasPlatforms
)

var labelNames = []struct {
	label Labels
	name  string
}{
	{Station, "STATION"},
	{Platform, "PLATFORM"},
	{RouteStation, "ROUTE_STATION"},
	{Service, "SERVICE"},
	{Hour, "HOUR"},
	{Minute, "MINUTE"},
	{Grouped, "GROUPED"},
	{QueryNode, "QUERY_NODE"},
	{Interchange, "INTERCHANGE"},
	{HasPlatforms, "HAS_PLATFORMS"},
}

const RoleLabels = Station | Platform | RouteStation | Service | Hour | Minute | Grouped | QueryNode

func (l Labels) Has(other Labels) bool {
	return l&other == other
}

// Roles the role labels of l, without flags.
func (l Labels) Roles() Labels {
	return l & RoleLabels
}

func (l Labels) Count() int {
	count := 0
	for v := uint16(l); v != 0; v &= v - 1 {
		count++
	}
	return count
}

func (l Labels) String() string {
	names := make([]string, 0, 2)
	for _, ln := range labelNames {
		if l.Has(ln.label) {
			names = append(names, ln.name)
		}
	}
	return "[" + strings.Join(names, ",") + "]"
}

type RelationshipType uint8

const (
	EnterPlatform RelationshipType = iota
	LeavePlatform
	Board
	InterchangeBoard
	Depart
	InterchangeDepart
	DiversionDepart
	ToService
	ToHour
	ToMinute
	TramGoesTo
	Neighbour
	GroupedToParent
	GroupedToChild
	WalksToStation
	WalksFromStation
	// Origin joins a search root to its origins, never stored in a graph.
	Origin
)

var relationshipNames = [...]string{
	EnterPlatform:     "ENTER_PLATFORM",
	LeavePlatform:     "LEAVE_PLATFORM",
	Board:             "BOARD",
	InterchangeBoard:  "INTERCHANGE_BOARD",
	Depart:            "DEPART",
	InterchangeDepart: "INTERCHANGE_DEPART",
	DiversionDepart:   "DIVERSION_DEPART",
	ToService:         "TO_SERVICE",
	ToHour:            "TO_HOUR",
	ToMinute:          "TO_MINUTE",
	TramGoesTo:        "TRAM_GOES_TO",
	Neighbour:         "NEIGHBOUR",
	GroupedToParent:   "GROUPED_TO_PARENT",
	GroupedToChild:    "GROUPED_TO_CHILD",
	WalksToStation:    "WALKS_TO_STATION",
	WalksFromStation:  "WALKS_FROM_STATION",
	Origin:            "ORIGIN",
}

func (t RelationshipType) String() string {
	if int(t) < len(relationshipNames) {
		return relationshipNames[t]
	}
	return "UNKNOWN"
}

// Calendar days a service runs.
type Calendar struct {
	Range datastructure.DateRange
	// bit i set when the service runs on time.Weekday(i)
	Days uint8
}

const EveryDay uint8 = 0x7f

func (c *Calendar) RunsOn(date time.Time) bool {
	if c == nil {
		return true
	}
	if !c.Range.Contains(date) {
		return false
	}
	return c.Days&(1<<uint(date.Weekday())) != 0
}

type Node struct {
	ID        NodeID
	Labels    Labels
	StationID string
	RouteID   string
	ServiceID string
	TripID    string
	Hour      int
	Time      datastructure.TramTime
	Mode      datastructure.TransportMode
	Location  datastructure.Coordinate
	Calendar  *Calendar
}

type Relationship struct {
	ID        RelationshipID
	Type      RelationshipType
	From      NodeID
	To        NodeID
	Cost      time.Duration
	TripID    string
	ServiceID string
	RouteID   string
	Hour      int
	Time      datastructure.TramTime
	// zero means always valid
	Valid datastructure.DateRange
	// zero means never closed
	Closed datastructure.DateRange
}

func (r Relationship) AvailableOn(date time.Time) bool {
	if !r.Valid.IsZero() && !r.Valid.Contains(date) {
		return false
	}
	if !r.Closed.IsZero() && r.Closed.Contains(date) {
		return false
	}
	return true
}

// Transaction read view of the graph. safe for use by one search.
type Transaction interface {
	Node(id NodeID) (Node, error)
	Outgoing(id NodeID, types ...RelationshipType) ([]Relationship, error)
	Incoming(id NodeID, types ...RelationshipType) ([]Relationship, error)
	// LocationNode node of a station or station group id.
	LocationNode(locationID string) (NodeID, bool)
	Stations() []Node
	Close()
}

type Store interface {
	BeginTx() (Transaction, error)
}

func matchesType(t RelationshipType, types []RelationshipType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

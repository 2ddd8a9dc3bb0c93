package states

type StateType uint8

const (
	NotStarted StateType = iota
	Walking
	PlatformStation
	NoPlatformStation
	Platform
	JustBoarded
	RouteStationOnTrip
	RouteStationEndTrip
	Service
	Hour
	Minute
	GroupedStation
	Destination
	numberOfStateTypes
)

var stateTypeNames = [...]string{
	NotStarted:          "NotStarted",
	Walking:             "Walking",
	PlatformStation:     "PlatformStation",
	NoPlatformStation:   "NoPlatformStation",
	Platform:            "Platform",
	JustBoarded:         "JustBoarded",
	RouteStationOnTrip:  "RouteStationOnTrip",
	RouteStationEndTrip: "RouteStationEndTrip",
	Service:             "Service",
	Hour:                "Hour",
	Minute:              "Minute",
	GroupedStation:      "GroupedStation",
	Destination:         "Destination",
}

func (t StateType) String() string {
	if t < numberOfStateTypes {
		return stateTypeNames[t]
	}
	return "Unknown"
}

// AllStateTypes every state type, in declaration order.
func AllStateTypes() []StateType {
	types := make([]StateType, 0, numberOfStateTypes)
	for t := NotStarted; t < numberOfStateTypes; t++ {
		types = append(types, t)
	}
	return types
}

func (t StateType) IsStation() bool {
	return t == PlatformStation || t == NoPlatformStation
}

// IsRouteStation states reached by riding a vehicle into a route station.
func (t StateType) IsRouteStation() bool {
	return t == RouteStationOnTrip || t == RouteStationEndTrip
}

// endsAtDestination successors that turn into Destination when their node is a destination.
func (t StateType) endsAtDestination() bool {
	return t.IsStation() || t == GroupedStation || t == Walking
}

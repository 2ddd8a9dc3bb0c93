package network

import (
	"time"

	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
)

// FixtureDate a date every fixture service runs on.
var FixtureDate = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

// ThreeRouteFixture A-B-C on r1, C-D on r2, D-E on r3, changing at interchanges C and D.
// C has two platforms, r1 arrives at 1 and r2 leaves from 2.
func ThreeRouteFixture() *Network {
	tt := func(hour, minute int) datastructure.TramTime { return datastructure.NewTramTime(hour, minute) }
	call := func(station, platform string, arrive, depart datastructure.TramTime) StopCall {
		return StopCall{Station: station, Platform: platform, Arrive: arrive, Depart: depart}
	}

	n := &Network{
		Name: "three-route",
		Stations: []Station{
			{ID: "A", Name: "Altrincham", Location: datastructure.NewCoordinate(53.4800, -2.2400)},
			{ID: "B", Name: "Broadheath", Location: datastructure.NewCoordinate(53.4850, -2.2300)},
			{ID: "C", Name: "Cornbrook", Location: datastructure.NewCoordinate(53.4900, -2.2200), Platforms: []string{"1", "2"}, Interchange: true},
			{ID: "D", Name: "Deansgate", Location: datastructure.NewCoordinate(53.4950, -2.2100), Interchange: true},
			{ID: "E", Name: "Exchange", Location: datastructure.NewCoordinate(53.5000, -2.2000)},
		},
		Routes: []Route{
			{ID: "r1", Name: "Altrincham - Cornbrook", Mode: datastructure.Tram},
			{ID: "r2", Name: "Cornbrook - Deansgate", Mode: datastructure.Bus},
			{ID: "r3", Name: "Deansgate - Exchange", Mode: datastructure.Tram},
		},
		Services: []Service{
			{ID: "daily", Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)},
		},
		Trips: []Trip{
			{ID: "t1", Route: "r1", Service: "daily", Stops: []StopCall{
				call("A", "", tt(8, 0), tt(8, 0)),
				call("B", "", tt(8, 5), tt(8, 6)),
				call("C", "1", tt(8, 12), tt(8, 12)),
			}},
			{ID: "t1b", Route: "r1", Service: "daily", Stops: []StopCall{
				call("A", "", tt(9, 0), tt(9, 0)),
				call("B", "", tt(9, 5), tt(9, 6)),
				call("C", "1", tt(9, 12), tt(9, 12)),
			}},
			{ID: "t2", Route: "r2", Service: "daily", Stops: []StopCall{
				call("C", "2", tt(8, 20), tt(8, 20)),
				call("D", "", tt(8, 30), tt(8, 30)),
			}},
			{ID: "t3", Route: "r3", Service: "daily", Stops: []StopCall{
				call("D", "", tt(8, 40), tt(8, 40)),
				call("E", "", tt(8, 50), tt(8, 50)),
			}},
		},
	}
	if err := n.Validate(); err != nil {
		panic(err)
	}
	return n
}

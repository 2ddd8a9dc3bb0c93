package datastructure

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-polyline"
)

type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

func CreatePolyline(path []Coordinate) string {
	coords := make([][]float64, 0, len(path))
	for _, p := range path {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}

func DecodePolyline(s string) ([]Coordinate, error) {
	coords, _, err := polyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil, err
	}
	path := make([]Coordinate, 0, len(coords))
	for _, c := range coords {
		path = append(path, NewCoordinate(c[0], c[1]))
	}
	return path, nil
}

type TransportMode uint8

const (
	NotSetMode TransportMode = iota
	Tram
	Bus
	Train
	Ferry
	Subway
	Walk
	Connect
)

var modeNames = map[TransportMode]string{
	NotSetMode: "notset",
	Tram:       "tram",
	Bus:        "bus",
	Train:      "train",
	Ferry:      "ferry",
	Subway:     "subway",
	Walk:       "walk",
	Connect:    "connect",
}

func (m TransportMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

func ParseTransportMode(s string) (TransportMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for mode, name := range modeNames {
		if name == s {
			return mode, nil
		}
	}
	return NotSetMode, errors.Newf("unknown transport mode %q", s)
}

func (m TransportMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TransportMode) UnmarshalText(text []byte) error {
	mode, err := ParseTransportMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

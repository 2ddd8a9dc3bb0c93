package geo

import (
	"testing"

	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/uber/h3-go/v4"
)

func TestGridRingDistance(t *testing.T) {
	dest := datastructure.NewCoordinate(53.4774, -2.2309)
	near := datastructure.NewCoordinate(53.4800, -2.2400)
	far := datastructure.NewCoordinate(53.3875, -2.3476)

	grid := NewGrid(7, map[string]datastructure.Coordinate{
		"dest": dest,
		"near": near,
		"far":  far,
	})

	destCell, ok := grid.StationCell("dest")
	assert.True(t, ok)
	_, ok = grid.StationCell("unknown")
	assert.False(t, ok)

	distances := grid.DistancesFrom([]h3.Cell{destCell}, 10)
	nearCell, _ := grid.StationCell("near")
	farCell, _ := grid.StationCell("far")

	assert.Equal(t, 0, distances.SquaredDistance(destCell))
	assert.LessOrEqual(t, distances.SquaredDistance(nearCell), distances.SquaredDistance(farCell))
	assert.Greater(t, distances.SquaredDistance(farCell), 0)
}

func TestGridBeyondMaxRing(t *testing.T) {
	grid := NewGrid(9, nil)
	dest := grid.CellFor(datastructure.NewCoordinate(53.4774, -2.2309))
	other := grid.CellFor(datastructure.NewCoordinate(51.5072, -0.1276))

	distances := grid.DistancesFrom([]h3.Cell{dest}, 2)
	assert.Equal(t, 9, distances.SquaredDistance(other))
}

package kv

import (
	"github.com/kelindar/binary"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
)

type recordData struct {
	Depth    uint8
	RouteA   uint16
	RouteB   uint16
	Overlaps []uint16
}

type batchData struct {
	NumberOfRoutes uint32
	Records        []recordData
}

type artifactMeta struct {
	Batches uint32
	Records uint64
}

func toRecordData(r routes.InterchangeRecord) recordData {
	data := recordData{
		Depth:  r.Depth,
		RouteA: uint16(r.RouteA),
		RouteB: uint16(r.RouteB),
	}
	if r.Overlaps != nil {
		bits := r.Overlaps.SetBits()
		data.Overlaps = make([]uint16, len(bits))
		for i, b := range bits {
			data.Overlaps[i] = uint16(b)
		}
	}
	return data
}

func (d recordData) toRecord(numberOfRoutes uint32) routes.InterchangeRecord {
	overlaps := datastructure.NewSimpleBitmap(uint(numberOfRoutes))
	for _, link := range d.Overlaps {
		if uint32(link) < numberOfRoutes {
			overlaps.Set(uint(link))
		}
	}
	return routes.InterchangeRecord{
		Depth:    d.Depth,
		RouteA:   routes.RouteHandle(d.RouteA),
		RouteB:   routes.RouteHandle(d.RouteB),
		Overlaps: overlaps,
	}
}

func encodeBatch(batch batchData) ([]byte, error) {
	return binary.Marshal(batch)
}

func decodeBatch(bb []byte) (batchData, error) {
	var batch batchData
	err := binary.Unmarshal(bb, &batch)
	return batch, err
}

func encodeMeta(meta artifactMeta) ([]byte, error) {
	return binary.Marshal(meta)
}

func decodeMeta(bb []byte) (artifactMeta, error) {
	var meta artifactMeta
	err := binary.Unmarshal(bb, &meta)
	return meta, err
}

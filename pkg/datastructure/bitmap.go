package datastructure

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/cockroachdb/errors"
)

// SimpleBitmap is a fixed size bit vector. Positions outside [0, size) panic.
type SimpleBitmap struct {
	size uint
	bits *bitset.BitSet
}

func NewSimpleBitmap(size uint) *SimpleBitmap {
	return &SimpleBitmap{
		size: size,
		bits: bitset.New(size),
	}
}

func (b *SimpleBitmap) Size() uint {
	return b.size
}

func (b *SimpleBitmap) checkPosition(position uint) {
	if position >= b.size {
		panic(errors.AssertionFailedf("bitmap position %d out of range [0, %d)", position, b.size))
	}
}

func (b *SimpleBitmap) checkCompatible(other *SimpleBitmap) {
	if other.size != b.size {
		panic(errors.AssertionFailedf("bitmap size mismatch %d != %d", b.size, other.size))
	}
}

func (b *SimpleBitmap) Set(position uint) {
	b.checkPosition(position)
	b.bits.Set(position)
}

func (b *SimpleBitmap) Unset(position uint) {
	b.checkPosition(position)
	b.bits.Clear(position)
}

func (b *SimpleBitmap) Get(position uint) bool {
	b.checkPosition(position)
	return b.bits.Test(position)
}

// SetAll sets every position in [start, end).
func (b *SimpleBitmap) SetAll(start, end uint) {
	if start > end || end > b.size {
		panic(errors.AssertionFailedf("bitmap range [%d, %d) out of range [0, %d)", start, end, b.size))
	}
	for i := start; i < end; i++ {
		b.bits.Set(i)
	}
}

func (b *SimpleBitmap) Clear() {
	b.bits.ClearAll()
}

func (b *SimpleBitmap) Cardinality() int {
	return int(b.bits.Count())
}

func (b *SimpleBitmap) IsEmpty() bool {
	return b.bits.None()
}

func (b *SimpleBitmap) Or(other *SimpleBitmap) {
	b.checkCompatible(other)
	b.bits.InPlaceUnion(other.bits)
}

func (b *SimpleBitmap) And(other *SimpleBitmap) {
	b.checkCompatible(other)
	b.bits.InPlaceIntersection(other.bits)
}

func (b *SimpleBitmap) AndNot(other *SimpleBitmap) {
	b.checkCompatible(other)
	b.bits.InPlaceDifference(other.bits)
}

// Submap copies [start, end) into a new bitmap of size end-start.
func (b *SimpleBitmap) Submap(start, end uint) *SimpleBitmap {
	if start > end || end > b.size {
		panic(errors.AssertionFailedf("submap [%d, %d) out of range [0, %d)", start, end, b.size))
	}
	sub := NewSimpleBitmap(end - start)
	for i, ok := b.bits.NextSet(start); ok && i < end; i, ok = b.bits.NextSet(i + 1) {
		sub.bits.Set(i - start)
	}
	return sub
}

// SetBits returns the set positions in ascending order.
func (b *SimpleBitmap) SetBits() []uint {
	positions := make([]uint, 0, b.bits.Count())
	for i, ok := b.bits.NextSet(0); ok && i < b.size; i, ok = b.bits.NextSet(i + 1) {
		positions = append(positions, i)
	}
	return positions
}

// ForEach calls fn for every set position in ascending order.
func (b *SimpleBitmap) ForEach(fn func(position uint)) {
	for i, ok := b.bits.NextSet(0); ok && i < b.size; i, ok = b.bits.NextSet(i + 1) {
		fn(i)
	}
}

func (b *SimpleBitmap) Clone() *SimpleBitmap {
	return &SimpleBitmap{
		size: b.size,
		bits: b.bits.Clone(),
	}
}

func (b *SimpleBitmap) Equal(other *SimpleBitmap) bool {
	return b.size == other.size && b.bits.Equal(other.bits)
}

// IndexedBitmap is a rows x columns grid stored in one SimpleBitmap, position = row*columns + column.
type IndexedBitmap struct {
	rows    uint
	columns uint
	bitmap  *SimpleBitmap
}

func NewIndexedBitmap(rows, columns uint) *IndexedBitmap {
	return &IndexedBitmap{
		rows:    rows,
		columns: columns,
		bitmap:  NewSimpleBitmap(rows * columns),
	}
}

func NewSquareIndexedBitmap(n uint) *IndexedBitmap {
	return NewIndexedBitmap(n, n)
}

func (m *IndexedBitmap) Rows() uint {
	return m.rows
}

func (m *IndexedBitmap) Columns() uint {
	return m.columns
}

func (m *IndexedBitmap) position(row, column uint) uint {
	if row >= m.rows {
		panic(errors.AssertionFailedf("row %d out of range [0, %d)", row, m.rows))
	}
	if column >= m.columns {
		panic(errors.AssertionFailedf("column %d out of range [0, %d)", column, m.columns))
	}
	return row*m.columns + column
}

func (m *IndexedBitmap) Set(row, column uint) {
	m.bitmap.Set(m.position(row, column))
}

func (m *IndexedBitmap) Unset(row, column uint) {
	m.bitmap.Unset(m.position(row, column))
}

func (m *IndexedBitmap) IsSet(row, column uint) bool {
	return m.bitmap.Get(m.position(row, column))
}

// Row returns a copy of one row, sized to the number of columns.
func (m *IndexedBitmap) Row(row uint) *SimpleBitmap {
	if row >= m.rows {
		panic(errors.AssertionFailedf("row %d out of range [0, %d)", row, m.rows))
	}
	start := row * m.columns
	return m.bitmap.Submap(start, start+m.columns)
}

// InsertRow ors bits into the given row.
func (m *IndexedBitmap) InsertRow(row uint, bits *SimpleBitmap) {
	if bits.Size() != m.columns {
		panic(errors.AssertionFailedf("row size %d != columns %d", bits.Size(), m.columns))
	}
	start := m.position(row, 0)
	bits.ForEach(func(column uint) {
		m.bitmap.bits.Set(start + column)
	})
}

func (m *IndexedBitmap) checkCompatible(other *IndexedBitmap) {
	if other.rows != m.rows || other.columns != m.columns {
		panic(errors.AssertionFailedf("bitmap shape mismatch %dx%d != %dx%d", m.rows, m.columns, other.rows, other.columns))
	}
}

func (m *IndexedBitmap) Or(other *IndexedBitmap) {
	m.checkCompatible(other)
	m.bitmap.Or(other.bitmap)
}

func (m *IndexedBitmap) AndNot(other *IndexedBitmap) {
	m.checkCompatible(other)
	m.bitmap.AndNot(other.bitmap)
}

func (m *IndexedBitmap) Cardinality() int {
	return m.bitmap.Cardinality()
}

// ForEach calls fn with the row and column of every set bit, row major.
func (m *IndexedBitmap) ForEach(fn func(row, column uint)) {
	m.bitmap.ForEach(func(position uint) {
		fn(position/m.columns, position%m.columns)
	})
}

func (m *IndexedBitmap) Transpose() *IndexedBitmap {
	t := NewIndexedBitmap(m.columns, m.rows)
	m.ForEach(func(row, column uint) {
		t.Set(column, row)
	})
	return t
}

package tetris

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillRow は指定行の全列を埋めます。
func fillRow(b *Board, row int, color Color) {
	for col := 0; col < b.Cols(); col++ {
		b.settled[Cell{Row: row, Col: col}] = color
	}
}

func TestNewBoard(t *testing.T) {
	b := NewDefaultBoard()
	assert.Equal(t, BoardHeight, b.Rows())
	assert.Equal(t, BoardWidth, b.Cols())
	assert.Equal(t, 0, b.Len())

	_, err := NewBoard(1, 10)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
	_, err = NewBoard(20, 6)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	b, err = NewBoard(30, 12)
	require.NoError(t, err)
	assert.Equal(t, 30, b.Rows())
	assert.Equal(t, 12, b.Cols())
}

func TestBoard_IsOutOfBounds(t *testing.T) {
	b := NewDefaultBoard()

	tests := []struct {
		cell Cell
		want bool
	}{
		{Cell{0, 0}, false},
		{Cell{19, 9}, false},
		{Cell{-1, 0}, true},
		{Cell{20, 0}, true},
		{Cell{0, -1}, true},
		{Cell{0, 10}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.IsOutOfBounds(tt.cell), "cell %v", tt.cell)
	}
}

func TestBoard_WouldCollide(t *testing.T) {
	b := NewDefaultBoard()
	b.settled[Cell{Row: 19, Col: 4}] = "#000000"

	assert.False(t, b.WouldCollide([]Cell{{18, 4}, {18, 5}}))
	assert.True(t, b.WouldCollide([]Cell{{18, 4}, {19, 4}}), "overlaps settled cell")
	assert.True(t, b.WouldCollide([]Cell{{18, 9}, {18, 10}}), "right wall")
	assert.True(t, b.WouldCollide([]Cell{{20, 0}}), "floor")
	assert.False(t, b.CollidesWithSettled([]Cell{{20, 0}}))
}

// WouldCollide は全ブロックが範囲内かつ固定済みブロックと重ならない場合にのみfalseです。
func TestBoard_WouldCollideProperty(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		b := NewDefaultBoard()
		n := r.Intn(60)
		for j := 0; j < n; j++ {
			b.settled[Cell{Row: r.Intn(20), Col: r.Intn(10)}] = "#111111"
		}

		cells := make([]Cell, 4)
		for k := range cells {
			cells[k] = Cell{Row: r.Intn(24) - 2, Col: r.Intn(14) - 2}
		}

		legal := true
		for _, c := range cells {
			if c.Row < 0 || c.Row >= 20 || c.Col < 0 || c.Col >= 10 {
				legal = false
			}
			if _, ok := b.settled[c]; ok {
				legal = false
			}
		}
		assert.Equal(t, !legal, b.WouldCollide(cells), "cells %v", cells)
	}
}

func TestBoard_Commit(t *testing.T) {
	b := NewDefaultBoard()
	p, err := NewPiece(TypeO)
	require.NoError(t, err)

	b.Commit(p)

	assert.Equal(t, 4, b.Len())
	for _, c := range p.Cells() {
		color, ok := b.ColorAt(c)
		assert.True(t, ok)
		assert.Equal(t, p.Color(), color)
	}
}

func TestBoard_Place(t *testing.T) {
	b := NewDefaultBoard()

	require.NoError(t, b.Place(Cell{Row: 19, Col: 9}, "#ABCDEF"))
	color, ok := b.ColorAt(Cell{Row: 19, Col: 9})
	assert.True(t, ok)
	assert.Equal(t, Color("#ABCDEF"), color)

	assert.ErrorIs(t, b.Place(Cell{Row: 20, Col: 0}, "#ABCDEF"), ErrOutOfBounds)
	assert.Equal(t, 1, b.Len())
}

func TestBoard_ClearFullRows_None(t *testing.T) {
	b := NewDefaultBoard()
	b.settled[Cell{Row: 19, Col: 0}] = "#111111"

	assert.Equal(t, 0, b.ClearFullRows())
	assert.Equal(t, 1, b.Len())
}

func TestBoard_ClearFullRows_SingleBottomRow(t *testing.T) {
	b := NewDefaultBoard()
	fillRow(b, 19, "#111111")
	b.settled[Cell{Row: 18, Col: 2}] = "#222222"

	assert.Equal(t, 1, b.ClearFullRows())
	assert.Equal(t, []SettledCell{{Cell: Cell{Row: 19, Col: 2}, Color: "#222222"}}, b.Cells())
}

func TestBoard_ClearFullRows_NonAdjacentRows(t *testing.T) {
	b := NewDefaultBoard()
	fillRow(b, 2, "#FFFFFF")
	fillRow(b, 5, "#FFFFFF")

	// 各区間に目印のブロックを置く
	marks := map[Cell]int{
		{Row: 0, Col: 0}:  2,
		{Row: 1, Col: 9}:  2,
		{Row: 3, Col: 1}:  1,
		{Row: 4, Col: 8}:  1,
		{Row: 6, Col: 3}:  0,
		{Row: 19, Col: 5}: 0,
	}
	for c := range marks {
		b.settled[c] = "#123456"
	}

	assert.Equal(t, 2, b.ClearFullRows())
	assert.Equal(t, len(marks), b.Len())
	for c, shift := range marks {
		moved := Cell{Row: c.Row + shift, Col: c.Col}
		color, ok := b.ColorAt(moved)
		assert.True(t, ok, "cell %v should move to %v", c, moved)
		assert.Equal(t, Color("#123456"), color)
	}
	for _, sc := range b.Cells() {
		assert.NotEqual(t, "#FFFFFF", string(sc.Color), "cleared row survived at %v", sc.Cell)
	}
}

func TestBoard_ClearFullRows_Four(t *testing.T) {
	b := NewDefaultBoard()
	for row := 16; row < 20; row++ {
		fillRow(b, row, "#940000")
	}
	b.settled[Cell{Row: 15, Col: 7}] = "#007F94"

	assert.Equal(t, 4, b.ClearFullRows())
	assert.Equal(t, []SettledCell{{Cell: Cell{Row: 19, Col: 7}, Color: "#007F94"}}, b.Cells())
}

func TestBoard_CellsSortedAndClear(t *testing.T) {
	b := NewDefaultBoard()
	b.settled[Cell{Row: 5, Col: 1}] = "#1"
	b.settled[Cell{Row: 2, Col: 7}] = "#2"
	b.settled[Cell{Row: 5, Col: 0}] = "#3"

	cells := b.Cells()
	require.Len(t, cells, 3)
	assert.Equal(t, Cell{Row: 2, Col: 7}, cells[0].Cell)
	assert.Equal(t, Cell{Row: 5, Col: 0}, cells[1].Cell)
	assert.Equal(t, Cell{Row: 5, Col: 1}, cells[2].Cell)

	b.Clear()
	assert.Equal(t, 0, b.Len())
}

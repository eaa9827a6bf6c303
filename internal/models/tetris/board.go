package tetris

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidDimensions はカタログのピースが収まらないボードサイズを指定した場合のエラーです。
var ErrInvalidDimensions = errors.New("invalid board dimensions")

// ErrOutOfBounds はボードの外にブロックを置こうとした場合のエラーです。
var ErrOutOfBounds = errors.New("cell out of bounds")

const (
	minBoardRows = 2
	minBoardCols = 7
)

// SettledCell は固定済みのブロックです。
type SettledCell struct {
	Cell
	Color Color `json:"color"`
}

// Board は固定済みブロックの集合です。落下中のピースは含みません。
// 同じ座標に2つのブロックが存在することはありません。
type Board struct {
	rows    int
	cols    int
	settled map[Cell]Color
}

// NewBoard は rows x cols の空のボードを作成します。
func NewBoard(rows, cols int) (*Board, error) {
	if rows < minBoardRows || cols < minBoardCols {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols)
	}
	return &Board{
		rows:    rows,
		cols:    cols,
		settled: make(map[Cell]Color),
	}, nil
}

// NewDefaultBoard は 20x10 の空のボードを作成します。
func NewDefaultBoard() *Board {
	return &Board{
		rows:    BoardHeight,
		cols:    BoardWidth,
		settled: make(map[Cell]Color),
	}
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

// Len は固定済みブロックの数を返します。
func (b *Board) Len() int { return len(b.settled) }

// ColorAt は指定座標の固定済みブロックの色を返します。
func (b *Board) ColorAt(c Cell) (Color, bool) {
	color, ok := b.settled[c]
	return color, ok
}

// Cells は固定済みブロックを (row, col) 順に並べて返します。
func (b *Board) Cells() []SettledCell {
	out := make([]SettledCell, 0, len(b.settled))
	for c, color := range b.settled {
		out = append(out, SettledCell{Cell: c, Color: color})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Clear は全ての固定済みブロックを削除します。
func (b *Board) Clear() {
	b.settled = make(map[Cell]Color)
}

// IsOutOfBounds は座標がボードの外にあるかどうかを判定します。
func (b *Board) IsOutOfBounds(c Cell) bool {
	return c.Row < 0 || c.Row >= b.rows || c.Col < 0 || c.Col >= b.cols
}

// CollidesWithSettled はいずれかの座標が固定済みブロックと重なるかを判定します。
func (b *Board) CollidesWithSettled(cells []Cell) bool {
	for _, c := range cells {
		if _, ok := b.settled[c]; ok {
			return true
		}
	}
	return false
}

// WouldCollide はピースをその位置に置けないかどうかを判定します。
// 壁・床の外、または固定済みブロックと重なる場合にtrueです。
func (b *Board) WouldCollide(cells []Cell) bool {
	for _, c := range cells {
		if b.IsOutOfBounds(c) {
			return true
		}
	}
	return b.CollidesWithSettled(cells)
}

// Commit はピースのブロックを色付きで固定済みブロックに追加します。
// 位置の妥当性は呼び出し側が WouldCollide で確認済みである必要があります。
func (b *Board) Commit(p *Piece) {
	color := p.Color()
	for _, c := range p.cells {
		b.settled[c] = color
	}
}

// Place は1マスのブロックを固定済みブロックとして置きます。
// ボードの外には置けません。同じ座標のブロックは上書きされます。
func (b *Board) Place(c Cell, color Color) error {
	if b.IsOutOfBounds(c) {
		return fmt.Errorf("%w: (%d,%d) is outside %dx%d", ErrOutOfBounds, c.Row, c.Col, b.rows, b.cols)
	}
	b.settled[c] = color
	return nil
}

// ClearFullRows は揃ったラインを削除し、その上のブロックを落とします。
//
// 揃ったライン1本ごとに、それより上の全ての行のシフト量を1増やします。
// 揃ったラインを削除した後、残ったブロックを元の行のシフト量だけ下に動かします。
// 削除してから元の行基準でシフトするため、離れたラインが同時に揃っても
// シフトが重複して適用されることはありません。
//
// Returns:
//   int: クリアされたライン数
func (b *Board) ClearFullRows() int {
	rowCounts := make([]int, b.rows)
	for c := range b.settled {
		rowCounts[c.Row]++
	}

	shift := make([]int, b.rows)
	cleared := 0
	for row := 0; row < b.rows; row++ {
		if rowCounts[row] != b.cols {
			continue
		}
		cleared++
		for above := 0; above < row; above++ {
			shift[above]++
		}
	}
	if cleared == 0 {
		return 0
	}

	next := make(map[Cell]Color, len(b.settled))
	for c, color := range b.settled {
		if rowCounts[c.Row] == b.cols {
			continue
		}
		next[Cell{Row: c.Row + shift[c.Row], Col: c.Col}] = color
	}
	b.settled = next
	return cleared
}

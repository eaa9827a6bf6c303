package tetris

import "fmt"

// Cell はボード上のマス目の座標です。Rowは下方向、Colは右方向に増えます。
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Direction はピースの移動方向です。
type Direction int

const (
	Left Direction = iota
	Right
	Down
)

// delta は移動方向を (行, 列) の移動量に変換します。
func (d Direction) delta() (int, int) {
	switch d {
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	case Down:
		return 1, 0
	}
	return 0, 0
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Down:
		return "down"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Piece は落下中のテトリミノです。4つのブロックの絶対座標と種類を持ちます。
// 1つのPieceは同時に1つのエンジンだけが所有します。
type Piece struct {
	pieceType PieceType
	cells     [4]Cell
}

// NewPiece はカタログの初期配置で新しいピースを作成します。
//
// Parameters:
//   t : テトリミノの種類
// Returns:
//   *Piece: 作成されたピース
//   error: 未定義の種類の場合は ErrInvalidKind
func NewPiece(t PieceType) (*Piece, error) {
	def, err := Shape(t)
	if err != nil {
		return nil, fmt.Errorf("ピースの作成に失敗しました: %w", err)
	}
	return &Piece{pieceType: t, cells: def.Cells}, nil
}

// Type はピースの種類を返します。
func (p *Piece) Type() PieceType {
	return p.pieceType
}

// Color はピースの色を返します。
func (p *Piece) Color() Color {
	return shapeCatalog[p.pieceType].Color
}

// Cells は現在の4ブロックの座標のコピーを返します。
func (p *Piece) Cells() []Cell {
	out := make([]Cell, len(p.cells))
	copy(out, p.cells[:])
	return out
}

// Translate はピースを指定方向に1マス動かします。衝突判定は行いません。
func (p *Piece) Translate(dir Direction) {
	dRow, dCol := dir.delta()
	for i := range p.cells {
		p.cells[i].Row += dRow
		p.cells[i].Col += dCol
	}
}

// Rotate はピボット (インデックス1のブロック) を中心に90度回転させます。
// Oミノは回転しません。衝突判定は行いません。
func (p *Piece) Rotate() {
	if p.pieceType == TypeO {
		return
	}
	pivot := p.cells[PivotIndex]
	for i, c := range p.cells {
		p.cells[i] = Cell{
			Row: pivot.Row + (c.Col - pivot.Col),
			Col: pivot.Col - (c.Row - pivot.Row),
		}
	}
}

// Clone は現在のPieceのディープコピーを返します。
// 操作前のピースの状態を保持しつつ、操作後の状態を仮に試すことができます。
func (p *Piece) Clone() *Piece {
	newP := *p
	return &newP
}

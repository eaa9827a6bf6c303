package tetris

import (
	"errors"
	"fmt"
)

const (
	BoardWidth  = 10 // テトリスボードの幅
	BoardHeight = 20 // テトリスボードの高さ

	// PivotIndex は回転の中心として使うブロックのインデックスです (Oミノは回転しない)。
	PivotIndex = 1
)

// ErrInvalidKind は定義されていないPieceTypeでピースを作ろうとした場合のエラーです。
var ErrInvalidKind = errors.New("invalid piece kind")

// PieceType はテトリミノの種類を表します。
type PieceType int

const (
	TypeI PieceType = iota // 0: I-ミノ
	TypeJ                  // 1: J-ミノ
	TypeL                  // 2: L-ミノ
	TypeO                  // 3: O-ミノ
	TypeS                  // 4: S-ミノ
	TypeT                  // 5: T-ミノ
	TypeZ                  // 6: Z-ミノ

	pieceTypeCount = 7
)

// Color はブロックの表示色 (#RRGGBB) です。
type Color string

// ShapeDef はテトリミノの初期配置と色の定義です。
type ShapeDef struct {
	Cells [4]Cell
	Color Color
}

// shapeCatalog は各PieceTypeの出現時のブロック座標 (row, col) と色です。
// 10列のボードで3〜6列目、0〜1行目に収まるように配置されています。
// インデックス1のブロックが回転の中心になります。
var shapeCatalog = [pieceTypeCount]ShapeDef{
	TypeI: { // ++++
		Cells: [4]Cell{{0, 3}, {0, 4}, {0, 5}, {0, 6}},
		Color: "#940000",
	},
	TypeJ: { // +-- / +++
		Cells: [4]Cell{{0, 3}, {1, 3}, {1, 4}, {1, 5}},
		Color: "#7A9400",
	},
	TypeL: { // --+ / +++
		Cells: [4]Cell{{0, 5}, {1, 3}, {1, 4}, {1, 5}},
		Color: "#007F94",
	},
	TypeO: { // ++ / ++
		Cells: [4]Cell{{0, 3}, {0, 4}, {1, 3}, {1, 4}},
		Color: "#B274DC",
	},
	TypeS: { // -++ / ++-
		Cells: [4]Cell{{0, 4}, {0, 5}, {1, 3}, {1, 4}},
		Color: "#607EFB",
	},
	TypeT: { // -+- / +++
		Cells: [4]Cell{{0, 4}, {1, 3}, {1, 4}, {1, 5}},
		Color: "#DC749D",
	},
	TypeZ: { // ++- / -++
		Cells: [4]Cell{{0, 3}, {0, 4}, {1, 4}, {1, 5}},
		Color: "#6DF500",
	},
}

var pieceTypeNames = [pieceTypeCount]string{
	TypeI: "I",
	TypeJ: "J",
	TypeL: "L",
	TypeO: "O",
	TypeS: "S",
	TypeT: "T",
	TypeZ: "Z",
}

// Valid はPieceTypeが7種類のいずれかであるかを返します。
func (t PieceType) Valid() bool {
	return t >= 0 && t < pieceTypeCount
}

func (t PieceType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("PieceType(%d)", int(t))
	}
	return pieceTypeNames[t]
}

// Shape は指定されたPieceTypeの初期配置と色を返します。
//
// Returns:
//   ShapeDef: 4ブロックの初期座標と色
//   error: 未定義のPieceTypeの場合は ErrInvalidKind
func Shape(t PieceType) (ShapeDef, error) {
	if !t.Valid() {
		return ShapeDef{}, fmt.Errorf("%w: %d", ErrInvalidKind, int(t))
	}
	return shapeCatalog[t], nil
}

// AllPieceTypes は7種類のPieceTypeを定義順に返します。
func AllPieceTypes() []PieceType {
	types := make([]PieceType, 0, pieceTypeCount)
	for t := PieceType(0); t < pieceTypeCount; t++ {
		types = append(types, t)
	}
	return types
}

// StringToPieceType は文字列のテトリミノタイプ（"I", "O", "T"など）をPieceTypeに変換します。
func StringToPieceType(s string) (PieceType, bool) {
	for t, name := range pieceTypeNames {
		if name == s {
			return PieceType(t), true
		}
	}
	return TypeI, false
}

// PieceTypeToString はPieceTypeを文字列表現に変換します。
func PieceTypeToString(t PieceType) string {
	if !t.Valid() {
		return ""
	}
	return pieceTypeNames[t]
}

package tetris

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/models/tetris"
)

// Picker は次に出現するテトリミノの種類を決定します。
type Picker interface {
	Next() tetris.PieceType
}

// ピッカーの名前 (設定値 PIECE_PICKER)
const (
	PickerUniform = "uniform"
	PickerBag     = "bag"
)

// ErrUnknownPicker は未定義のピッカー名を指定した場合のエラーです。
var ErrUnknownPicker = errors.New("unknown piece picker")

// NewRand はシードから乱数生成器を作成します。0の場合は現在時刻をシードにします。
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// NewPicker は名前に対応するピッカーを作成します。
func NewPicker(name string, r *rand.Rand, logger *zap.Logger) (Picker, error) {
	switch name {
	case "", PickerUniform:
		return NewUniformPicker(r), nil
	case PickerBag:
		return NewBagPicker(r, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPicker, name)
	}
}

// UniformPicker は7種類から一様ランダムに選びます。
type UniformPicker struct {
	rand *rand.Rand
}

func NewUniformPicker(r *rand.Rand) *UniformPicker {
	if r == nil {
		r = NewRand(0)
	}
	return &UniformPicker{rand: r}
}

func (p *UniformPicker) Next() tetris.PieceType {
	return tetris.PieceType(p.rand.Intn(len(tetris.AllPieceTypes())))
}

// BagPicker はテトリスで一般的な7-bagシステムでピースを選びます。
// 前のバッグの最後のピースと新しいバッグの最初のピースが同じにならないように調整します。
type BagPicker struct {
	rand   *rand.Rand
	queue  []tetris.PieceType
	logger *zap.Logger
}

func NewBagPicker(r *rand.Rand, logger *zap.Logger) *BagPicker {
	if r == nil {
		r = NewRand(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BagPicker{rand: r, logger: logger}
}

// refill は新しい7種類のバッグをシャッフルしてキューに追加します。
func (p *BagPicker) refill() {
	bag := tetris.AllPieceTypes()

	var lastPieceType tetris.PieceType
	hasLastPiece := len(p.queue) > 0
	if hasLastPiece {
		lastPieceType = p.queue[len(p.queue)-1]
	}

	p.rand.Shuffle(len(bag), func(i, j int) {
		bag[i], bag[j] = bag[j], bag[i]
	})

	// 連続防止：最初のピースと2番目以降のどれかを交換
	if hasLastPiece && bag[0] == lastPieceType {
		swapIndex := p.rand.Intn(len(bag)-1) + 1
		bag[0], bag[swapIndex] = bag[swapIndex], bag[0]
		p.logger.Debug("bag boundary repeat avoided",
			zap.Stringer("piece", lastPieceType),
			zap.Int("swap_index", swapIndex))
	}

	p.queue = append(p.queue, bag...)
}

func (p *BagPicker) Next() tetris.PieceType {
	// 境界の連続防止のため、常に次のバッグが見えている状態を保つ
	if len(p.queue) <= 1 {
		p.refill()
	}
	next := p.queue[0]
	p.queue = p.queue[1:]
	return next
}

// SequencePicker は決められた順番でピースを出し、最後まで行くと先頭に戻ります。
// テストやリプレイ用です。
type SequencePicker struct {
	seq []tetris.PieceType
	pos int
}

func NewSequencePicker(kinds ...tetris.PieceType) (*SequencePicker, error) {
	if len(kinds) == 0 {
		return nil, errors.New("sequence picker needs at least one piece")
	}
	for _, k := range kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("sequence picker: %w: %d", tetris.ErrInvalidKind, int(k))
		}
	}
	seq := make([]tetris.PieceType, len(kinds))
	copy(seq, kinds)
	return &SequencePicker{seq: seq}, nil
}

func (p *SequencePicker) Next() tetris.PieceType {
	next := p.seq[p.pos]
	p.pos = (p.pos + 1) % len(p.seq)
	return next
}

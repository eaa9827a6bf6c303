package tetris

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/models/tetris"
)

// DefaultTickInterval はピースが自動落下する間隔です。
const DefaultTickInterval = 200 * time.Millisecond

// Intent はアダプターからエンジンに送られるプレイヤー操作です。
type Intent int

const (
	IntentMoveLeft Intent = iota
	IntentMoveRight
	IntentSoftDrop
	IntentRotate
	IntentHardDrop
	IntentReset
)

var intentActions = map[string]Intent{
	"move_left":  IntentMoveLeft,
	"move_right": IntentMoveRight,
	"soft_drop":  IntentSoftDrop,
	"rotate":     IntentRotate,
	"hard_drop":  IntentHardDrop,
	"reset":      IntentReset,
}

// ParseIntent はクライアントのアクション文字列（例: "move_left", "rotate"）をIntentに変換します。
func ParseIntent(action string) (Intent, bool) {
	intent, ok := intentActions[action]
	return intent, ok
}

func (i Intent) String() string {
	for action, intent := range intentActions {
		if intent == i {
			return action
		}
	}
	return fmt.Sprintf("Intent(%d)", int(i))
}

// CalculateScore はラインクリア数からスコアを計算します。
// n本同時に消すと 100 * (2^n - 1) 点なので、複数ライン消しほど有利になります。
//
// Parameters:
//   clearedLines : クリアされたライン数 (0-4)
// Returns:
//   int: 獲得スコア
func CalculateScore(clearedLines int) int {
	if clearedLines <= 0 {
		return 0
	}
	return 100 * (1<<clearedLines - 1)
}

// ApplyIntent はプレイヤーの操作をエンジンに適用します。
// ゲームオーバー中はReset以外の操作を受け付けません。
//
// Returns:
//   bool: 操作が受け付けられた場合はtrue
func (e *Engine) ApplyIntent(intent Intent) bool {
	if intent == IntentReset {
		e.Reset()
		return true
	}
	if e.state == StateGameOver {
		return false
	}

	switch intent {
	case IntentMoveLeft:
		return e.Move(tetris.Left)
	case IntentMoveRight:
		return e.Move(tetris.Right)
	case IntentSoftDrop:
		return e.Move(tetris.Down)
	case IntentRotate:
		return e.Rotate()
	case IntentHardDrop:
		return e.HardDrop()
	}
	return false
}

// Move はピースを1マス動かします。
// クローンを動かして衝突判定を行い、衝突しない場合にのみ実際のピースに適用します。
// 下方向に動けない場合は、次のティックを待たずにその場で固定します。
//
// Returns:
//   bool: ピースが移動した場合はtrue
func (e *Engine) Move(dir tetris.Direction) bool {
	if e.state == StateGameOver || e.active == nil {
		return false
	}

	ghost := e.active.Clone()
	ghost.Translate(dir)
	if !e.board.WouldCollide(ghost.Cells()) {
		e.active.Translate(dir)
		return true
	}

	if dir == tetris.Down {
		e.lockPiece()
	}
	return false
}

// Rotate はピースを90度回転させます。衝突する場合は何もしません。
func (e *Engine) Rotate() bool {
	if e.state == StateGameOver || e.active == nil {
		return false
	}
	if e.active.Type() == tetris.TypeO {
		return false
	}

	ghost := e.active.Clone()
	ghost.Rotate()
	if e.board.WouldCollide(ghost.Cells()) {
		return false
	}
	e.active.Rotate()
	return true
}

// HardDrop はピースを衝突するまで落下させてから固定します。
func (e *Engine) HardDrop() bool {
	if e.state == StateGameOver || e.active == nil {
		return false
	}
	for e.Move(tetris.Down) {
	}
	return true
}

// lockPiece はピースがボードに固定された後の処理をすべて行います。
// ラインクリア、スコア加算、次のピース生成、ゲームオーバー判定が含まれます。
func (e *Engine) lockPiece() {
	e.board.Commit(e.active)
	e.active = nil
	e.state = StateSpawning

	cleared := e.board.ClearFullRows()
	e.score += CalculateScore(cleared)
	e.lines += cleared
	if cleared > 0 {
		e.logger.Debug("lines cleared",
			zap.Int("cleared", cleared),
			zap.Int("score", e.score),
			zap.Int("lines", e.lines))
	}

	e.spawn()
}

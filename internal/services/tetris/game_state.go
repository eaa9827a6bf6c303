package tetris

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/models/tetris"
)

// State はエンジンの状態です。
type State int

const (
	StateSpawning State = iota // ピース生成待ち
	StateFalling               // ピース落下中
	StateGameOver              // ゲームオーバー (Resetまで停止)
)

func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateFalling:
		return "falling"
	case StateGameOver:
		return "game_over"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Engine は単一プレイヤーのゲーム状態です。
// ボード、落下中のピース、スコアはすべてEngineが所有し、Engineの操作でのみ変更されます。
// Engineは並行アクセスに対して安全ではありません。
type Engine struct {
	board        *tetris.Board
	active       *tetris.Piece    // 現在操作中のテトリミノ
	next         tetris.PieceType // 次に出現するテトリミノ
	hasNext      bool
	score        int
	lines        int
	elapsed      time.Duration
	state        State
	tickInterval time.Duration
	picker       Picker
	logger       *zap.Logger
}

// Option はEngineの設定を変更します。
type Option func(*Engine) error

// WithBoardSize はボードのサイズを指定します。
func WithBoardSize(rows, cols int) Option {
	return func(e *Engine) error {
		board, err := tetris.NewBoard(rows, cols)
		if err != nil {
			return err
		}
		e.board = board
		return nil
	}
}

// WithTickInterval は1ティックで進む時間を指定します。
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return fmt.Errorf("tick interval must be positive: %s", d)
		}
		e.tickInterval = d
		return nil
	}
}

// WithPicker はピースの選び方を指定します。
func WithPicker(p Picker) Option {
	return func(e *Engine) error {
		if p == nil {
			return fmt.Errorf("picker must not be nil")
		}
		e.picker = p
		return nil
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) error {
		if l != nil {
			e.logger = l
		}
		return nil
	}
}

// NewEngine は新しいエンジンを作成します。最初のピースは最初のTickかResetで生成されます。
//
// Returns:
//   *Engine: 初期化されたエンジン
//   error: オプションが不正な場合
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		board:        tetris.NewDefaultBoard(),
		state:        StateSpawning,
		tickInterval: DefaultTickInterval,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("エンジンの初期化に失敗しました: %w", err)
		}
	}
	if e.picker == nil {
		e.picker = NewUniformPicker(nil)
	}
	return e, nil
}

// Tick は1ティック分ゲームを進めます。
// ピースがなければ生成し、あれば1マス落下させます。落下できなければ固定します。
func (e *Engine) Tick() {
	if e.state == StateGameOver {
		return
	}
	e.elapsed += e.tickInterval

	if e.active == nil {
		e.spawn()
		return
	}

	ghost := e.active.Clone()
	ghost.Translate(tetris.Down)
	if !e.board.WouldCollide(ghost.Cells()) {
		e.active.Translate(tetris.Down)
		return
	}
	e.lockPiece()
}

// Reset はボードとスコアを初期化し、新しいピースを生成します。
func (e *Engine) Reset() {
	e.board.Clear()
	e.active = nil
	e.hasNext = false
	e.score = 0
	e.lines = 0
	e.elapsed = 0
	e.state = StateSpawning
	e.spawn()
}

// spawn は新しいテトリミノをボード上に出現させます。
// 出現位置で既に衝突している場合はゲームオーバーになります。
func (e *Engine) spawn() {
	pieceType := e.next
	if !e.hasNext {
		pieceType = e.picker.Next()
	}
	e.next = e.picker.Next()
	e.hasNext = true

	piece, err := tetris.NewPiece(pieceType)
	if err != nil {
		panic(fmt.Sprintf("spawn: %v", err))
	}
	e.active = piece

	if e.board.WouldCollide(piece.Cells()) {
		e.state = StateGameOver
		e.logger.Info("game over",
			zap.Int("score", e.score),
			zap.Int("lines", e.lines),
			zap.Duration("elapsed", e.elapsed))
		return
	}
	e.state = StateFalling
}

func (e *Engine) State() State { return e.state }
func (e *Engine) Score() int { return e.score }
func (e *Engine) Lines() int { return e.lines }
func (e *Engine) Elapsed() time.Duration { return e.elapsed }
func (e *Engine) IsGameOver() bool { return e.state == StateGameOver }
func (e *Engine) TickInterval() time.Duration { return e.tickInterval }

// Snapshot はアダプターが描画に使う読み取り専用の状態です。
type Snapshot struct {
	Rows       int                  `json:"rows"`
	Cols       int                  `json:"cols"`
	Settled    []tetris.SettledCell `json:"settled"`
	Active     []tetris.SettledCell `json:"active"`
	ActiveKind string               `json:"active_kind,omitempty"`
	NextKind   string               `json:"next_kind,omitempty"`
	Score      int                  `json:"score"`
	Lines      int                  `json:"lines_cleared"`
	Elapsed    float64              `json:"elapsed"` // 秒
	IsGameOver bool                 `json:"is_game_over"`
	State      string               `json:"state"`
}

// Snapshot は現在の状態のコピーを返します。
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Rows:       e.board.Rows(),
		Cols:       e.board.Cols(),
		Settled:    e.board.Cells(),
		Active:     []tetris.SettledCell{},
		Score:      e.score,
		Lines:      e.lines,
		Elapsed:    e.elapsed.Seconds(),
		IsGameOver: e.IsGameOver(),
		State:      e.state.String(),
	}
	if e.active != nil {
		color := e.active.Color()
		for _, c := range e.active.Cells() {
			snap.Active = append(snap.Active, tetris.SettledCell{Cell: c, Color: color})
		}
		snap.ActiveKind = e.active.Type().String()
	}
	if e.hasNext {
		snap.NextKind = e.next.String()
	}
	return snap
}

package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	model "github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

var (
	borderStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)
	textStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	alertStyle  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// app は1つのエンジンを端末に描画し、キー入力と落下タイマーで動かします。
type app struct {
	screen tcell.Screen
	engine *tetris.Engine
	ticker *time.Ticker
	tick   <-chan time.Time
}

func newApp(screen tcell.Screen, engine *tetris.Engine) *app {
	return &app{screen: screen, engine: engine}
}

// intentForKey はキーをエンジンへの操作に変換します。
func intentForKey(ev *tcell.EventKey) (tetris.Intent, bool) {
	switch ev.Key() {
	case tcell.KeyLeft:
		return tetris.IntentMoveLeft, true
	case tcell.KeyRight:
		return tetris.IntentMoveRight, true
	case tcell.KeyDown:
		return tetris.IntentSoftDrop, true
	case tcell.KeyUp:
		return tetris.IntentRotate, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'a', 'A':
			return tetris.IntentMoveLeft, true
		case 'd', 'D':
			return tetris.IntentMoveRight, true
		case 's', 'S':
			return tetris.IntentSoftDrop, true
		case 'w', 'W':
			return tetris.IntentRotate, true
		case ' ':
			return tetris.IntentHardDrop, true
		case 'r', 'R':
			return tetris.IntentReset, true
		}
	}
	return 0, false
}

func isQuitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q' || ev.Rune() == 'Q'
	}
	return false
}

func (a *app) startTicker() {
	a.stopTicker()
	a.ticker = time.NewTicker(a.engine.TickInterval())
	a.tick = a.ticker.C
}

// stopTicker はゲームオーバー後に落下を止めます。nil チャネルは select で選ばれません。
func (a *app) stopTicker() {
	if a.ticker != nil {
		a.ticker.Stop()
		a.ticker = nil
	}
	a.tick = nil
}

// run は events が閉じられるか終了キーが押されるまでゲームを進めます。
func (a *app) run(events <-chan tcell.Event) {
	a.engine.Reset()
	a.startTicker()
	defer a.stopTicker()
	a.draw()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				a.screen.Sync()
			case *tcell.EventKey:
				if isQuitKey(ev) {
					return
				}
				intent, ok := intentForKey(ev)
				if !ok {
					continue
				}
				a.engine.ApplyIntent(intent)
				if intent == tetris.IntentReset {
					a.startTicker()
				}
			}

		case <-a.tick:
			a.engine.Tick()
		}

		if a.engine.IsGameOver() && a.tick != nil {
			a.stopTicker()
		}
		a.draw()
	}
}

// cellPos は盤面のセルを画面座標に変換します。1セルは横2文字です。
func cellPos(c model.Cell) (x, y int) {
	return 1 + c.Col*2, 1 + c.Row
}

func (a *app) draw() {
	snap := a.engine.Snapshot()
	s := a.screen
	s.Clear()

	right := 1 + snap.Cols*2
	bottom := 1 + snap.Rows
	for y := 0; y <= bottom; y++ {
		s.SetContent(0, y, '│', nil, borderStyle)
		s.SetContent(right, y, '│', nil, borderStyle)
	}
	for x := 0; x <= right; x++ {
		s.SetContent(x, 0, '─', nil, borderStyle)
		s.SetContent(x, bottom, '─', nil, borderStyle)
	}
	s.SetContent(0, 0, '┌', nil, borderStyle)
	s.SetContent(right, 0, '┐', nil, borderStyle)
	s.SetContent(0, bottom, '└', nil, borderStyle)
	s.SetContent(right, bottom, '┘', nil, borderStyle)

	for _, sc := range snap.Settled {
		drawBlock(s, sc)
	}
	for _, sc := range snap.Active {
		drawBlock(s, sc)
	}

	px := right + 3
	drawText(s, px, 1, textStyle, fmt.Sprintf("SCORE %d", snap.Score))
	drawText(s, px, 2, textStyle, fmt.Sprintf("LINES %d", snap.Lines))
	drawText(s, px, 3, textStyle, fmt.Sprintf("TIME  %.1fs", snap.Elapsed))
	drawText(s, px, 5, textStyle, "NEXT  "+snap.NextKind)
	if snap.IsGameOver {
		drawText(s, px, 7, alertStyle, "GAME OVER")
		drawText(s, px, 8, textStyle, "r: restart")
	}
	drawText(s, px, 10, borderStyle, "←→/ad move  ↑/w rotate")
	drawText(s, px, 11, borderStyle, "↓/s drop  space hard drop")
	drawText(s, px, 12, borderStyle, "q/esc quit")

	s.Show()
}

func drawBlock(s tcell.Screen, sc model.SettledCell) {
	style := tcell.StyleDefault.Background(tcell.GetColor(string(sc.Color)))
	x, y := cellPos(sc.Cell)
	s.SetContent(x, y, ' ', nil, style)
	s.SetContent(x+1, y, ' ', nil, style)
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

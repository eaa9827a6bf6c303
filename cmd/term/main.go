package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/logging"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// 画面が崩れるので端末には出力せず、LOG_FILE が指定された場合のみファイルに書く
	logger := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logger.Sync()

	engine, err := newEngine(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("端末の初期化に失敗しました: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("端末の初期化に失敗しました: %v", err)
	}
	screen.SetStyle(tcell.StyleDefault)
	screen.HideCursor()

	quit := make(chan struct{})
	events := pollEvents(screen, quit)

	newApp(screen, engine).run(events)

	close(quit)
	screen.Fini()

	snap := engine.Snapshot()
	fmt.Printf("score %d, lines %d, time %.1fs\n", snap.Score, snap.Lines, snap.Elapsed)
}

func newEngine(cfg *config.Config, logger *zap.Logger) (*tetris.Engine, error) {
	picker, err := tetris.NewPicker(cfg.Picker, tetris.NewRand(cfg.RandomSeed), logger)
	if err != nil {
		return nil, err
	}
	return tetris.NewEngine(
		tetris.WithBoardSize(cfg.BoardRows, cfg.BoardCols),
		tetris.WithTickInterval(cfg.TickInterval),
		tetris.WithPicker(picker),
		tetris.WithLogger(logger),
	)
}

// pollEvents は端末イベントをチャネルに流します。Fini 後は PollEvent が nil を返して終了します。
func pollEvents(screen tcell.Screen, quit <-chan struct{}) <-chan tcell.Event {
	events := make(chan tcell.Event, 16)
	go func() {
		defer close(events)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()
	return events
}

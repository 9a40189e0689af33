package terminal

import (
	"log"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/services/tetris"
)

// FrameRate は端末版のゲームループの更新間隔です。
const FrameRate = time.Second / 60

// maxFrameDelta より長い停止 (サスペンドなど) は1フレーム分として扱う
const maxFrameDelta = 100 * time.Millisecond

// Game は端末で遊ぶ1人用ゲームです。すべての更新は Run のゴルーチンから行われます。
type Game struct {
	settings   tetris.GameSettings
	newShuffle func() tetris.Shuffler

	State  *tetris.PlayerGameState
	Input  tetris.InputState
	Keys   *KeyTracker
	Paused bool

	userID     string
	onGameOver func(*tetris.PlayerGameState)
	reported   bool
}

// NewGame は新しいゲームを作ります。newShuffle が nil なら時刻をシードにします。
func NewGame(userID string, settings tetris.GameSettings, newShuffle func() tetris.Shuffler) *Game {
	if newShuffle == nil {
		newShuffle = func() tetris.Shuffler { return tetris.NewRandShuffler(time.Now().UnixNano()) }
	}
	g := &Game{
		settings:   settings,
		newShuffle: newShuffle,
		userID:     userID,
	}
	g.Keys = NewKeyTracker(&g.Input)
	g.Restart()
	return g
}

// OnGameOver はゲームオーバー時に1回だけ呼ばれる関数を設定します。
func (g *Game) OnGameOver(fn func(*tetris.PlayerGameState)) {
	g.onGameOver = fn
}

// Restart は新しいゲームを始めます。
func (g *Game) Restart() {
	g.State = tetris.NewPlayerGameState(g.userID, g.settings, g.newShuffle(), tetris.ClassicAppearance)
	g.Keys.Reset()
	g.Paused = false
	g.reported = false
}

// HandleKey はキー入力を処理し、終了が要求されたら false を返します。
func (g *Game) HandleKey(key tcell.Key, r rune) bool {
	action, ok, cmd := MapKey(key, r)
	if ok {
		if !g.Paused {
			g.Keys.Key(action)
		}
		return true
	}
	switch cmd {
	case CommandQuit:
		return false
	case CommandPause:
		if !g.State.IsGameOver() {
			g.Paused = !g.Paused
			g.Keys.Reset()
		}
	case CommandRestart:
		if g.State.IsGameOver() {
			g.Restart()
		}
	}
	return true
}

// Step はゲームを dt だけ進めます。
// 加点イベントは1フレームに1件ずつ合計に反映し、得点が少しずつ増えて見えるようにします。
func (g *Game) Step(dt time.Duration) {
	if g.Paused {
		return
	}
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}
	tetris.Update(g.State, dt, &g.Input)
	g.Input.EndFrame()
	g.Keys.Advance(dt)
	g.State.Score.ApplyNext()

	if g.State.IsGameOver() && !g.reported {
		g.reported = true
		g.State.Score.ApplyAll()
		if g.onGameOver != nil {
			g.onGameOver(g.State)
		}
	}
}

// View は現在の状態を描画用に変換します。
func (g *Game) View() View {
	v := Layout(g.State.Snapshot())
	v.Paused = g.Paused
	return v
}

// Run は端末のイベントを読みながら一定間隔でゲームを進め、終了キーが押されるまで戻りません。
func Run(screen tcell.Screen, g *Game) {
	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				// Fini された
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()
	defer close(quit)

	renderer := NewRenderer(screen)
	ticker := time.NewTicker(FrameRate)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !g.HandleKey(ev.Key(), ev.Rune()) {
					log.Printf("[Terminal] quit requested")
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case now := <-ticker.C:
			g.Step(now.Sub(last))
			last = now
			renderer.Draw(g.View())
		}
	}
}

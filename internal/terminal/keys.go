package terminal

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/services/tetris"
)

// 端末はキーを離したことを通知しないため、押下イベントが途切れたら離したとみなす。
// 最初のオートリピートが来るまでは長め、リピート中は短めの猶予を使う。
const (
	DefaultInitialHold = 500 * time.Millisecond
	DefaultRepeatHold  = 100 * time.Millisecond
)

// KeyTracker は端末のキー押下イベントから押しっぱなしの状態を推定し、InputState に反映します。
// 左右移動とソフトドロップだけを押しっぱなしとして扱い、それ以外の操作はイベントごとに Tap します。
type KeyTracker struct {
	input       *tetris.InputState
	initialHold time.Duration
	repeatHold  time.Duration
	held        map[tetris.Action]time.Duration // 残りの猶予
}

func NewKeyTracker(input *tetris.InputState) *KeyTracker {
	return &KeyTracker{
		input:       input,
		initialHold: DefaultInitialHold,
		repeatHold:  DefaultRepeatHold,
		held:        make(map[tetris.Action]time.Duration),
	}
}

// Key は1回のキー押下イベントを記録します。
func (k *KeyTracker) Key(a tetris.Action) {
	if !holdable(a) {
		k.input.Tap(a)
		return
	}
	if _, ok := k.held[a]; ok {
		// オートリピート
		k.held[a] = k.repeatHold
		return
	}
	if opp, ok := opposite(a); ok {
		k.release(opp)
	}
	k.held[a] = k.initialHold
	k.input.Press(a)
}

// Advance は猶予を dt だけ減らし、切れた操作を離します。フレームの最後に呼びます。
func (k *KeyTracker) Advance(dt time.Duration) {
	for a, remaining := range k.held {
		remaining -= dt
		if remaining <= 0 {
			k.release(a)
			continue
		}
		k.held[a] = remaining
	}
}

// Held は押しっぱなしと推定している操作かを返します。
func (k *KeyTracker) Held(a tetris.Action) bool {
	_, ok := k.held[a]
	return ok
}

// Reset はすべての操作を離します。
func (k *KeyTracker) Reset() {
	clear(k.held)
	k.input.ReleaseAll()
}

func (k *KeyTracker) release(a tetris.Action) {
	delete(k.held, a)
	k.input.Release(a)
}

func holdable(a tetris.Action) bool {
	switch a {
	case tetris.ActionMoveLeft, tetris.ActionMoveRight, tetris.ActionSoftDrop:
		return true
	}
	return false
}

func opposite(a tetris.Action) (tetris.Action, bool) {
	switch a {
	case tetris.ActionMoveLeft:
		return tetris.ActionMoveRight, true
	case tetris.ActionMoveRight:
		return tetris.ActionMoveLeft, true
	}
	return 0, false
}

// Command はゲーム操作以外のキー入力です。
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandRestart
	CommandPause
)

// MapKey は端末のキーをゲームの操作に変換します。
// 操作でなければ ok=false と、該当するコマンドを返します。
//
//	←/→, a/d    : 左右移動
//	↓, s        : ソフトドロップ
//	Space       : ハードドロップ
//	↑, x        : 右回転
//	z           : 左回転
//	c           : ホールド
//	p           : 一時停止
//	r           : リスタート
//	q, Esc, ^C  : 終了
func MapKey(key tcell.Key, r rune) (action tetris.Action, ok bool, cmd Command) {
	switch key {
	case tcell.KeyLeft:
		return tetris.ActionMoveLeft, true, CommandNone
	case tcell.KeyRight:
		return tetris.ActionMoveRight, true, CommandNone
	case tcell.KeyDown:
		return tetris.ActionSoftDrop, true, CommandNone
	case tcell.KeyUp:
		return tetris.ActionRotateCW, true, CommandNone
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return 0, false, CommandQuit
	case tcell.KeyRune:
	default:
		return 0, false, CommandNone
	}

	switch r {
	case 'a', 'A':
		return tetris.ActionMoveLeft, true, CommandNone
	case 'd', 'D':
		return tetris.ActionMoveRight, true, CommandNone
	case 's', 'S':
		return tetris.ActionSoftDrop, true, CommandNone
	case ' ':
		return tetris.ActionHardDrop, true, CommandNone
	case 'x', 'X':
		return tetris.ActionRotateCW, true, CommandNone
	case 'z', 'Z':
		return tetris.ActionRotateCCW, true, CommandNone
	case 'c', 'C':
		return tetris.ActionHold, true, CommandNone
	case 'p', 'P':
		return 0, false, CommandPause
	case 'r', 'R':
		return 0, false, CommandRestart
	case 'q', 'Q':
		return 0, false, CommandQuit
	}
	return 0, false, CommandNone
}

package tetris

import "github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"

// Action はプレイヤーが行える論理的な操作です。キー割り当ては入力側で解決されます。
type Action int

const (
	ActionMoveLeft Action = iota
	ActionMoveRight
	ActionSoftDrop
	ActionHardDrop
	ActionRotateCW
	ActionRotateCCW
	ActionHold
	numActions
)

var actionNames = [numActions]string{
	ActionMoveLeft:  "move_left",
	ActionMoveRight: "move_right",
	ActionSoftDrop:  "soft_drop",
	ActionHardDrop:  "hard_drop",
	ActionRotateCW:  "rotate_right",
	ActionRotateCCW: "rotate_left",
	ActionHold:      "hold",
}

func (a Action) String() string {
	if a < 0 || a >= numActions {
		return "unknown"
	}
	return actionNames[a]
}

// ParseAction はクライアントから届いたアクション名を Action に変換します。
// "rotate" は "rotate_right" の別名です。
func ParseAction(s string) (Action, bool) {
	if s == "rotate" {
		return ActionRotateCW, true
	}
	for a, name := range actionNames {
		if name == s {
			return Action(a), true
		}
	}
	return 0, false
}

// Input はフレームごとに問い合わせられる入力状態です。
type Input interface {
	// Held は操作が現在押されているかを返します。
	Held(a Action) bool
	// JustPressed はこのフレームで押されたかを返します。
	JustPressed(a Action) bool
}

// InputState は押下/解放イベントを溜めておき、フレーム単位で Input として読ませる実装です。
// EndFrame を呼ぶまで JustPressed は true のままです。
type InputState struct {
	held    [numActions]bool
	pressed [numActions]bool
	tapped  [numActions]bool
}

// Press は操作の押下を記録します。
func (s *InputState) Press(a Action) {
	if a < 0 || a >= numActions {
		return
	}
	if !s.held[a] {
		s.pressed[a] = true
	}
	s.held[a] = true
}

// Release は操作の解放を記録します。
func (s *InputState) Release(a Action) {
	if a < 0 || a >= numActions {
		return
	}
	s.held[a] = false
}

// Tap は1フレームだけ押された操作として記録します。解放は EndFrame で行われます。
func (s *InputState) Tap(a Action) {
	if a < 0 || a >= numActions {
		return
	}
	s.held[a] = true
	s.pressed[a] = true
	s.tapped[a] = true
}

// EndFrame は JustPressed の状態をクリアし、Tap された操作を解放します。
func (s *InputState) EndFrame() {
	for a := range s.tapped {
		if s.tapped[a] {
			s.held[a] = false
		}
	}
	s.pressed = [numActions]bool{}
	s.tapped = [numActions]bool{}
}

// ReleaseAll はすべての操作を解放します。
func (s *InputState) ReleaseAll() {
	s.held = [numActions]bool{}
	s.pressed = [numActions]bool{}
	s.tapped = [numActions]bool{}
}

func (s *InputState) Held(a Action) bool {
	return a >= 0 && a < numActions && s.held[a]
}

func (s *InputState) JustPressed(a Action) bool {
	return a >= 0 && a < numActions && s.pressed[a]
}

// AppearanceProvider は新しく作られるピースに見た目の情報を付けます。ゲーム性には影響しません。
type AppearanceProvider interface {
	Appearance(t tetris.PieceType) string
}

// AppearanceFunc は関数を AppearanceProvider として使うためのアダプターです。
type AppearanceFunc func(t tetris.PieceType) string

func (f AppearanceFunc) Appearance(t tetris.PieceType) string { return f(t) }

var classicColors = [tetris.NumPieceTypes]string{
	tetris.TypeI: "cyan",
	tetris.TypeO: "yellow",
	tetris.TypeT: "purple",
	tetris.TypeS: "green",
	tetris.TypeZ: "red",
	tetris.TypeJ: "blue",
	tetris.TypeL: "orange",
}

// ClassicAppearance は種類ごとの標準色名をピースに付けます。
var ClassicAppearance = AppearanceFunc(func(t tetris.PieceType) string {
	if !t.Valid() {
		return ""
	}
	return classicColors[t]
})

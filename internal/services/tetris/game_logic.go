package tetris

import (
	"time"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
)

// Update は1フレーム分ゲームを進めます。
//
// 1フレームの中では 入力 → 重力と固定 → 得点イベント → 次のピースの出現 の順に処理します。
// ライン消去アニメーション中は入力と重力を止め、アニメーションが終わった時点で行を消します。
//
// Parameters:
//
//	state : 更新するプレイヤーのゲーム状態のポインタ
//	dt    : 前のフレームからの経過時間
//	in    : このフレームの入力状態
func Update(state *PlayerGameState, dt time.Duration, in Input) {
	switch state.State {
	case StateGameOver:
		return
	case StateClearing:
		state.clearTimer += dt
		if state.clearTimer >= state.Settings.ClearAnimation {
			finishClear(state)
		}
		return
	}

	if ApplyPlayerInput(state, dt, in) {
		return
	}
	if !state.State.Active() {
		return
	}
	AutoFall(state, dt, in.Held(ActionSoftDrop))
	if state.State.Active() {
		state.GhostOffset = state.Board.DropDistance(state.CurrentPiece)
	}
}

// ApplyPlayerInput はプレイヤーの入力に基づいて現在のピースを操作します。
// 移動や回転が失敗しても状態は変わりません。
//
// Parameters:
//
//	state : 更新するプレイヤーのゲーム状態のポインタ
//	dt    : 前のフレームからの経過時間（横移動のリピートに使います）
//	in    : このフレームの入力状態
//
// Returns:
//
//	bool: ハードドロップでピースが固定された場合はtrue。そのフレームの残りの処理は行いません
func ApplyPlayerInput(state *PlayerGameState, dt time.Duration, in Input) bool {
	if !state.State.Active() || state.CurrentPiece == nil {
		return false
	}

	applyHorizontal(state, dt, in)

	if in.JustPressed(ActionRotateCW) {
		rotate(state, true)
	}
	if in.JustPressed(ActionRotateCCW) {
		rotate(state, false)
	}

	if in.JustPressed(ActionHardDrop) {
		// ハードドロップは移動量が0でも回転による移動とは見なさない
		state.CurrentPiece.Y += state.Board.DropDistance(state.CurrentPiece)
		state.lastMoveRotation = false
		handlePieceLock(state, true)
		return true
	}

	if in.JustPressed(ActionHold) {
		state.Hold()
	}
	return false
}

// applyHorizontal は左右移動とそのオートリピート (DAS) を処理します。
// 押した瞬間に1マス動き、押し続けると DASDelay 後に1回、その後は DASRepeat ごとに動きます。
// 両方向が押されている場合は後から押した方向が優先されます。
func applyHorizontal(state *PlayerGameState, dt time.Duration, in Input) {
	pressed := 0
	if in.JustPressed(ActionMoveLeft) {
		pressed = -1
	}
	if in.JustPressed(ActionMoveRight) {
		pressed = 1
	}
	if pressed != 0 {
		state.dasDir = pressed
		state.dasTimer = 0
		state.dasRepeating = false
		shift(state, pressed)
		return
	}

	if !heldDir(in, state.dasDir) {
		// 優先していた方向が離された。反対側がまだ押されていればそちらに切り替える
		switch {
		case state.dasDir != 0 && heldDir(in, -state.dasDir):
			state.dasDir = -state.dasDir
		case heldDir(in, -1):
			state.dasDir = -1
		case heldDir(in, 1):
			state.dasDir = 1
		default:
			state.dasDir = 0
		}
		state.dasTimer = 0
		state.dasRepeating = false
		return
	}

	state.dasTimer += dt
	threshold := state.Settings.DASDelay
	if state.dasRepeating {
		threshold = state.Settings.DASRepeat
	}
	if state.dasTimer >= threshold {
		state.dasTimer = 0
		state.dasRepeating = true
		shift(state, state.dasDir)
	}
}

func heldDir(in Input, dir int) bool {
	switch dir {
	case -1:
		return in.Held(ActionMoveLeft)
	case 1:
		return in.Held(ActionMoveRight)
	}
	return false
}

// shift はピースを横に1マス動かします。成功すると固定猶予がリセットされます。
func shift(state *PlayerGameState, dx int) bool {
	if !state.Board.IsValid(state.CurrentPiece, dx, 0) {
		return false
	}
	state.CurrentPiece.X += dx
	state.lastMoveRotation = false
	state.lockTimer = 0
	return true
}

// rotate はウォールキックを含めて回転を試みます。成功すると固定猶予がリセットされます。
func rotate(state *PlayerGameState, clockwise bool) bool {
	if !state.Board.RotatePiece(state.CurrentPiece, clockwise) {
		return false
	}
	state.lastMoveRotation = true
	state.lockTimer = 0
	return true
}

// AutoFall は重力による自動落下と、着地後の固定猶予を処理します。
//
// Parameters:
//
//	state    : 更新するプレイヤーのゲーム状態のポインタ
//	dt       : 前のフレームからの経過時間
//	softDrop : ソフトドロップ中か
//
// Returns:
//
//	bool: ピースが固定された場合はtrue
func AutoFall(state *PlayerGameState, dt time.Duration, softDrop bool) bool {
	if !state.State.Active() || state.CurrentPiece == nil {
		return false
	}
	p := state.CurrentPiece

	interval := state.Settings.GetFallInterval(state.Score.Level)
	if softDrop {
		interval = state.Settings.SoftDropGravity
	}
	state.gravityTimer += dt
	if state.gravityTimer > interval {
		state.gravityTimer = 0
		if state.Board.IsValid(p, 0, 1) {
			p.Y++
			state.lockTimer = 0
			state.lastMoveRotation = false
		}
	}

	if state.Board.IsValid(p, 0, 1) {
		state.State = StatePlaying
		return false
	}

	state.State = StateLocking
	state.lockTimer += dt
	if state.lockTimer > state.Settings.LockDelay {
		handlePieceLock(state, false)
		return true
	}
	return false
}

// handlePieceLock は現在のピースをボードに固定し、得点と次のピースの出現を処理します。
// 揃った行は消去アニメーションが終わるまでボードに残ります。
func handlePieceLock(state *PlayerGameState, hardDrop bool) {
	p := state.CurrentPiece
	locked := *p
	dropped := state.Board.MergePiece(p)
	state.CurrentPiece = nil
	state.lockTimer = 0
	state.gravityTimer = 0

	rows := state.Board.FullRows()
	spin := DetectTSpin(state.Board, p, state.lastMoveRotation)
	lines := len(rows)

	score := &state.Score
	switch {
	case spin != SpinNone && SpinPoints(lines, spin == SpinMini, score.Level) > 0:
		score.ScoreSpin(lines, spin)
	case lines > 0:
		score.ScoreLines(lines)
	}
	score.ScoreDrop(locked.Y, hardDrop)
	score.RecordClear(lines)
	score.Level = state.Settings.LevelFor(score.LinesCleared)

	state.LastLock = &LockResult{
		Piece:     locked,
		HardDrop:  hardDrop,
		Rows:      rows,
		Spin:      spin,
		LockedOut: dropped > 0,
	}

	// ボードの上端より上に残ったセルがある場合はロックアウト
	if dropped > 0 {
		state.topOut("lock out")
		return
	}

	if lines > 0 {
		state.State = StateClearing
		state.ClearingRows = rows
		state.clearTimer = 0
	} else {
		state.State = StatePlaying
	}
	state.advance()
}

// finishClear は消去アニメーションの終了時に行を消し、操作を再開させます。
func finishClear(state *PlayerGameState) {
	state.Board.ClearRows(state.ClearingRows)
	state.ClearingRows = nil
	state.clearTimer = 0
	state.State = StatePlaying

	if state.CurrentPiece == nil {
		state.advance()
		return
	}
	if !state.Board.IsValid(state.CurrentPiece, 0, 0) {
		state.topOut("block out")
		return
	}
	state.GhostOffset = state.Board.DropDistance(state.CurrentPiece)
}

// ghostCells はハードドロップした場合のピースのセルを返します。
func ghostCells(state *PlayerGameState) []tetris.Point {
	if state.CurrentPiece == nil || !state.State.Active() {
		return nil
	}
	cells := state.CurrentPiece.Cells()
	out := make([]tetris.Point, 0, len(cells))
	for _, c := range cells {
		out = append(out, tetris.Point{X: c.X, Y: c.Y + state.GhostOffset})
	}
	return out
}

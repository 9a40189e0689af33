package tetris

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
)

// orderedShuffler はバッグを並べ替えずに返します (I, O, T, S, Z, J, L の順)。
type orderedShuffler struct{}

func (orderedShuffler) Shuffle(types []tetris.PieceType) []tetris.PieceType { return types }

// quietSettings は重力で勝手に落ちないようにした設定です。
func quietSettings() GameSettings {
	s := DefaultGameSettings()
	s.Gravity = time.Hour
	return s
}

func newTestState(t *testing.T, settings GameSettings) *PlayerGameState {
	t.Helper()
	s := NewPlayerGameState("test-user", settings, orderedShuffler{}, nil)
	require.NotNil(t, s.CurrentPiece)
	require.Equal(t, tetris.TypeI, s.CurrentPiece.Type)
	return s
}

// frame は1フレーム進めて入力のフレーム状態を終えます。
func frame(s *PlayerGameState, in *InputState, dt time.Duration) {
	Update(s, dt, in)
	in.EndFrame()
}

func tap(s *PlayerGameState, a Action) {
	in := &InputState{}
	in.Tap(a)
	frame(s, in, time.Millisecond)
}

// fillRowExcept は holes 以外の列で y 行を埋めます。
func fillRowExcept(b *tetris.Board, y int, holes ...int) {
	skip := make(map[int]bool, len(holes))
	for _, h := range holes {
		skip[h] = true
	}
	for x := 0; x < b.Width(); x++ {
		if !skip[x] {
			b.Fill(tetris.TypeJ, tetris.Point{X: x, Y: y})
		}
	}
}

func TestUpdate_HardDropLocksImmediately(t *testing.T) {
	s := newTestState(t, quietSettings())
	assert.Equal(t, 20, s.GhostOffset)

	tap(s, ActionHardDrop)

	assert.Equal(t, 4, s.Board.Count())
	require.NotNil(t, s.CurrentPiece)
	assert.Equal(t, tetris.TypeO, s.CurrentPiece.Type)
	require.NotNil(t, s.LastLock)
	assert.True(t, s.LastLock.HardDrop)
	assert.Equal(t, 20, s.LastLock.Piece.Y)
	assert.Equal(t, []ScoreEvent{{Kind: EventDrop, Points: 40}}, s.Score.Pending)
	assert.Equal(t, StatePlaying, s.State)
}

func TestUpdate_LineClearWaitsForAnimation(t *testing.T) {
	settings := quietSettings()
	s := newTestState(t, settings)
	fillRowExcept(s.Board, 21, 3, 4, 5, 6)

	tap(s, ActionHardDrop)

	assert.Equal(t, StateClearing, s.State)
	assert.Equal(t, []int{21}, s.ClearingRows)
	assert.Equal(t, 10, s.Board.Count(), "rows stay on the board until the animation ends")
	require.NotNil(t, s.CurrentPiece)
	assert.Equal(t, tetris.TypeO, s.CurrentPiece.Type, "next piece is already visible")
	assert.Equal(t, []ScoreEvent{
		{Kind: EventLineClear, Lines: 1, Points: 100},
		{Kind: EventDrop, Points: 40},
	}, s.Score.Pending)

	// アニメーション中は操作できない
	in := &InputState{}
	in.Tap(ActionMoveLeft)
	frame(s, in, time.Millisecond)
	assert.Equal(t, tetris.SpawnX, s.CurrentPiece.X)
	assert.Equal(t, StateClearing, s.State)

	frame(s, &InputState{}, settings.ClearAnimation)
	assert.Equal(t, StatePlaying, s.State)
	assert.Empty(t, s.ClearingRows)
	assert.Equal(t, 0, s.Board.Count())
	assert.Equal(t, 1, s.Score.LinesCleared)
}

func TestUpdate_LineClearScores(t *testing.T) {
	tests := []struct {
		name   string
		lines  int
		points int
	}{
		{"single", 1, 100},
		{"double", 2, 300},
		{"triple", 3, 500},
		{"tetris", 4, 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := quietSettings()
			s := newTestState(t, settings)
			// 縦向きの I を左端の列 0、行 18..21 に置く
			s.CurrentPiece.X = -2
			s.CurrentPiece.Y = 18
			s.CurrentPiece.Rotation = 1
			for y := 22 - tt.lines; y < 22; y++ {
				fillRowExcept(s.Board, y, 0)
			}

			tap(s, ActionHardDrop)

			require.Len(t, s.Score.Pending, 2)
			assert.Equal(t, ScoreEvent{Kind: EventLineClear, Lines: tt.lines, Points: tt.points}, s.Score.Pending[0])
			assert.Equal(t, ScoreEvent{Kind: EventDrop, Points: 36}, s.Score.Pending[1])
			assert.Len(t, s.ClearingRows, tt.lines)

			frame(s, &InputState{}, settings.ClearAnimation)
			// 消えなかった I のセルは消えた行数だけ下に移動する
			remaining := 4 - tt.lines
			assert.Equal(t, remaining, s.Board.Count())
			for _, c := range s.Board.Cells() {
				assert.Equal(t, 0, c.X)
				assert.GreaterOrEqual(t, c.Y, 22-remaining)
			}
		})
	}
}

func TestHandlePieceLock_NaturalLockDropScore(t *testing.T) {
	s := newTestState(t, quietSettings())
	s.CurrentPiece.X = -2
	s.CurrentPiece.Y = 18
	s.CurrentPiece.Rotation = 1

	handlePieceLock(s, false)

	assert.Equal(t, []ScoreEvent{{Kind: EventDrop, Points: 18}}, s.Score.Pending)
}

func TestHandlePieceLock_BackToBackClearsHaveNoBonus(t *testing.T) {
	settings := quietSettings()
	s := newTestState(t, settings)

	// 縦向きの I を列 0 に置いて1行消す
	fillRowExcept(s.Board, 21, 0)
	s.CurrentPiece = &tetris.Piece{Type: tetris.TypeI, X: -2, Y: 18, Rotation: 1}
	handlePieceLock(s, false)
	frame(s, &InputState{}, settings.ClearAnimation)
	require.Equal(t, StatePlaying, s.State)

	// 続けて列 9 に置いてもう1行消す
	fillRowExcept(s.Board, 21, 0, 9)
	s.CurrentPiece = &tetris.Piece{Type: tetris.TypeI, X: 7, Y: 18, Rotation: 1}
	handlePieceLock(s, false)

	assert.Equal(t, 2, s.Score.Combo)
	assert.Equal(t, []ScoreEvent{
		{Kind: EventLineClear, Lines: 1, Points: 100},
		{Kind: EventDrop, Points: 18},
		{Kind: EventLineClear, Lines: 1, Points: 100},
		{Kind: EventDrop, Points: 18},
	}, s.Score.Pending)
}

func TestHandlePieceLock_TSpin(t *testing.T) {
	t.Run("full double", func(t *testing.T) {
		s := newTestState(t, quietSettings())
		fillRowExcept(s.Board, 21)
		fillRowExcept(s.Board, 20, 3, 4, 5)
		s.Board.Fill(tetris.TypeJ, tetris.Point{X: 3, Y: 19})
		s.CurrentPiece = &tetris.Piece{Type: tetris.TypeT, X: 3, Y: 19}
		s.lastMoveRotation = true

		handlePieceLock(s, false)

		assert.Equal(t, SpinFull, s.LastLock.Spin)
		assert.Equal(t, []ScoreEvent{
			{Kind: EventSpin, Lines: 2, Spin: SpinFull, Points: 1200},
			{Kind: EventDrop, Points: 19},
		}, s.Score.Pending)
	})

	miniBoard := func(t *testing.T, rotated bool) *PlayerGameState {
		s := newTestState(t, quietSettings())
		fillRowExcept(s.Board, 21, 1)
		s.Board.Fill(tetris.TypeJ, tetris.Point{X: 2, Y: 19})
		s.CurrentPiece = &tetris.Piece{Type: tetris.TypeT, X: 0, Y: 19, Rotation: 2}
		s.lastMoveRotation = rotated
		return s
	}

	t.Run("mini single", func(t *testing.T) {
		s := miniBoard(t, true)
		handlePieceLock(s, false)

		assert.Equal(t, SpinMini, s.LastLock.Spin)
		assert.Equal(t, []ScoreEvent{
			{Kind: EventSpin, Lines: 1, Spin: SpinMini, Points: 200},
			{Kind: EventDrop, Points: 19},
		}, s.Score.Pending)
	})

	t.Run("hard drop in place cancels the rotation", func(t *testing.T) {
		s := miniBoard(t, true)
		require.Equal(t, 0, s.Board.DropDistance(s.CurrentPiece))

		tap(s, ActionHardDrop)

		assert.Equal(t, SpinNone, s.LastLock.Spin)
		assert.Equal(t, []ScoreEvent{
			{Kind: EventLineClear, Lines: 1, Points: 100},
			{Kind: EventDrop, Points: 38},
		}, s.Score.Pending)
	})

	t.Run("mini triple scores as a plain triple", func(t *testing.T) {
		s := newTestState(t, quietSettings())
		fillRowExcept(s.Board, 19, 1)
		fillRowExcept(s.Board, 20, 1, 2)
		fillRowExcept(s.Board, 21, 1)
		s.CurrentPiece = &tetris.Piece{Type: tetris.TypeT, X: 0, Y: 19, Rotation: 1}
		s.lastMoveRotation = true

		handlePieceLock(s, false)

		assert.Equal(t, SpinMini, s.LastLock.Spin)
		assert.Equal(t, []int{19, 20, 21}, s.ClearingRows)
		assert.Equal(t, []ScoreEvent{
			{Kind: EventLineClear, Lines: 3, Points: 500},
			{Kind: EventDrop, Points: 19},
		}, s.Score.Pending)
	})

	t.Run("without rotation it is a plain clear", func(t *testing.T) {
		s := miniBoard(t, false)
		handlePieceLock(s, false)

		assert.Equal(t, SpinNone, s.LastLock.Spin)
		assert.Equal(t, []ScoreEvent{
			{Kind: EventLineClear, Lines: 1, Points: 100},
			{Kind: EventDrop, Points: 19},
		}, s.Score.Pending)
	})
}

func TestUpdate_GravityAndLockDelay(t *testing.T) {
	settings := DefaultGameSettings()
	settings.Gravity = 100 * time.Millisecond
	settings.LockDelay = 200 * time.Millisecond
	s := newTestState(t, settings)
	s.CurrentPiece.Y = 19

	in := &InputState{}
	frame(s, in, 101*time.Millisecond)
	assert.Equal(t, 20, s.CurrentPiece.Y, "gravity moves the piece down")
	assert.Equal(t, StateLocking, s.State)
	assert.Equal(t, 101*time.Millisecond, s.LockTimer())

	frame(s, in, 50*time.Millisecond)
	assert.Equal(t, 0, s.Board.Count())

	frame(s, in, 50*time.Millisecond)
	assert.Equal(t, 4, s.Board.Count(), "locks once the delay is exceeded")
	assert.Equal(t, tetris.TypeO, s.CurrentPiece.Type)
	assert.Equal(t, []ScoreEvent{{Kind: EventDrop, Points: 20}}, s.Score.Pending)
}

func TestUpdate_MoveResetsLockTimer(t *testing.T) {
	settings := DefaultGameSettings()
	settings.Gravity = 100 * time.Millisecond
	settings.LockDelay = 200 * time.Millisecond
	s := newTestState(t, settings)
	s.CurrentPiece.Y = 20

	in := &InputState{}
	frame(s, in, 150*time.Millisecond)
	require.Equal(t, StateLocking, s.State)
	require.Equal(t, 150*time.Millisecond, s.LockTimer())

	in.Tap(ActionMoveLeft)
	frame(s, in, 40*time.Millisecond)
	assert.Equal(t, tetris.SpawnX-1, s.CurrentPiece.X)
	assert.Equal(t, 40*time.Millisecond, s.LockTimer())
	assert.Equal(t, 0, s.Board.Count())
}

func TestUpdate_SoftDropUsesFastGravity(t *testing.T) {
	settings := quietSettings()
	settings.SoftDropGravity = 10 * time.Millisecond
	s := newTestState(t, settings)

	in := &InputState{}
	in.Press(ActionSoftDrop)
	for i := 0; i < 5; i++ {
		frame(s, in, 11*time.Millisecond)
	}
	assert.Equal(t, 5, s.CurrentPiece.Y)

	in.Release(ActionSoftDrop)
	frame(s, in, 11*time.Millisecond)
	assert.Equal(t, 5, s.CurrentPiece.Y)
}

func TestUpdate_HorizontalAutoRepeat(t *testing.T) {
	s := newTestState(t, quietSettings()) // DAS 250ms / 80ms
	in := &InputState{}
	step := 50 * time.Millisecond

	in.Press(ActionMoveRight)
	frame(s, in, step)
	assert.Equal(t, 4, s.CurrentPiece.X, "moves immediately on press")

	for i := 0; i < 4; i++ {
		frame(s, in, step)
	}
	assert.Equal(t, 4, s.CurrentPiece.X, "no repeat before the delay")

	frame(s, in, step)
	assert.Equal(t, 5, s.CurrentPiece.X, "first repeat after the delay")

	frame(s, in, step)
	assert.Equal(t, 5, s.CurrentPiece.X)
	frame(s, in, step)
	assert.Equal(t, 6, s.CurrentPiece.X, "then every repeat interval")

	for i := 0; i < 10; i++ {
		frame(s, in, step)
	}
	assert.Equal(t, 6, s.CurrentPiece.X, "stops at the wall")

	in.Release(ActionMoveRight)
	frame(s, in, step)
	in.Press(ActionMoveLeft)
	frame(s, in, step)
	assert.Equal(t, 5, s.CurrentPiece.X)
}

func TestUpdate_RotationFlag(t *testing.T) {
	s := newTestState(t, quietSettings())
	s.CurrentPiece.Y = 5

	tap(s, ActionRotateCW)
	assert.Equal(t, 1, s.CurrentPiece.Rotation)
	assert.True(t, s.LastMoveWasRotation())

	tap(s, ActionMoveLeft)
	assert.False(t, s.LastMoveWasRotation())

	tap(s, ActionRotateCCW)
	assert.Equal(t, 0, s.CurrentPiece.Rotation)
	assert.True(t, s.LastMoveWasRotation())
}

func TestUpdate_BlockOut(t *testing.T) {
	s := newTestState(t, quietSettings())
	// 次の O の出現位置をふさぐ (現在の I とは重ならない)
	s.Board.Fill(tetris.TypeJ, tetris.Point{X: 4, Y: 0})

	tap(s, ActionHardDrop)

	assert.True(t, s.IsGameOver())
	snap := s.Snapshot()
	assert.True(t, snap.IsGameOver)
	assert.Nil(t, snap.CurrentPiece)

	count := s.Board.Count()
	tap(s, ActionHardDrop)
	assert.Equal(t, count, s.Board.Count(), "no updates after game over")
}

func TestUpdate_LockOut(t *testing.T) {
	s := newTestState(t, quietSettings())
	s.Board.Fill(tetris.TypeJ,
		tetris.Point{X: 3, Y: 0}, tetris.Point{X: 4, Y: 0},
		tetris.Point{X: 5, Y: 0}, tetris.Point{X: 6, Y: 0})
	s.CurrentPiece.Y = -2

	tap(s, ActionHardDrop)

	assert.True(t, s.IsGameOver())
	require.NotNil(t, s.LastLock)
	assert.True(t, s.LastLock.LockedOut)
}

func TestUpdate_LevelProgression(t *testing.T) {
	settings := quietSettings()
	settings.LevelUpLines = 1
	s := newTestState(t, settings)
	fillRowExcept(s.Board, 21, 3, 4, 5, 6)

	tap(s, ActionHardDrop)
	assert.Equal(t, 2, s.Score.Level)
}

func TestSnapshot(t *testing.T) {
	s := NewPlayerGameState("test-user", quietSettings(), orderedShuffler{}, ClassicAppearance)
	snap := s.Snapshot()

	assert.Equal(t, StatePlaying, snap.State)
	require.NotNil(t, snap.CurrentPiece)
	assert.Equal(t, tetris.TypeI, snap.CurrentPiece.Type)
	assert.Equal(t, "cyan", snap.CurrentPiece.Appearance)
	assert.Len(t, snap.CurrentPiece.Cells, 4)
	assert.Equal(t, []tetris.PieceType{tetris.TypeO, tetris.TypeT}, snap.NextPieces)
	assert.Nil(t, snap.HeldPiece)
	assert.True(t, snap.CanHold)
	for _, c := range snap.GhostCells {
		assert.Equal(t, 21, c.Y)
	}
}

package tetris

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
)

func TestHold_EmptySlotTakesCurrentAndAdvances(t *testing.T) {
	s := newTestState(t, quietSettings())
	require.True(t, s.HeldPiece.Empty())

	tap(s, ActionHold)

	held, ok := s.HeldPiece.Get()
	require.True(t, ok)
	assert.Equal(t, tetris.TypeI, held)
	assert.Equal(t, tetris.TypeO, s.CurrentPiece.Type)
	assert.True(t, s.HasUsedHold())
	assert.Equal(t, []tetris.PieceType{tetris.TypeT, tetris.TypeS}, s.Preview())
}

func TestHold_SecondPressIsNoOp(t *testing.T) {
	s := newTestState(t, quietSettings())
	tap(s, ActionHold)
	before := *s.CurrentPiece
	heldBefore := s.HeldPiece

	assert.False(t, s.Hold())
	tap(s, ActionHold)

	assert.Equal(t, heldBefore, s.HeldPiece)
	assert.Equal(t, before.Type, s.CurrentPiece.Type)
}

func TestHold_SwapResetsToSpawn(t *testing.T) {
	s := newTestState(t, quietSettings())
	tap(s, ActionHold)     // I をホールド、O が出る
	tap(s, ActionHardDrop) // O を固定、T が出る
	require.Equal(t, tetris.TypeT, s.CurrentPiece.Type)
	require.False(t, s.HasUsedHold(), "a new piece may hold again")

	s.CurrentPiece.Y = 5
	tap(s, ActionRotateCW)
	tap(s, ActionMoveLeft)
	tap(s, ActionHold)

	held, _ := s.HeldPiece.Get()
	assert.Equal(t, tetris.TypeT, held)
	assert.Equal(t, tetris.TypeI, s.CurrentPiece.Type)
	assert.Equal(t, tetris.SpawnX, s.CurrentPiece.X)
	assert.Equal(t, tetris.SpawnY, s.CurrentPiece.Y)
	assert.Equal(t, 0, s.CurrentPiece.Rotation)
}

func TestHold_NotAllowedWhileClearing(t *testing.T) {
	s := newTestState(t, quietSettings())
	fillRowExcept(s.Board, 21, 3, 4, 5, 6)
	tap(s, ActionHardDrop)
	require.Equal(t, StateClearing, s.State)

	assert.False(t, s.Hold())
	assert.True(t, s.HeldPiece.Empty())
}

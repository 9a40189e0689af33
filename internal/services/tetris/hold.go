package tetris

import "github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"

// HoldSlot はホールド中のテトリミノを表します。空かどうかは ok で明示します。
type HoldSlot struct {
	piece tetris.PieceType
	ok    bool
}

// Get はホールド中のピースと、ホールドが埋まっているかを返します。
func (h HoldSlot) Get() (tetris.PieceType, bool) {
	return h.piece, h.ok
}

// Empty はホールドが空かどうかを返します。
func (h HoldSlot) Empty() bool {
	return !h.ok
}

func (h *HoldSlot) set(t tetris.PieceType) {
	h.piece = t
	h.ok = true
}

// Hold は現在のピースをホールドします。1つのピースにつき1回までです。
//
// ホールドが空なら現在のピースを入れて次のピースを出し、埋まっていれば入れ替えます。
// 入れ替えで出てきたピースは出現位置・回転0から始まります。
//
// Returns:
//
//	bool: ホールドが実行された場合はtrue
func (s *PlayerGameState) Hold() bool {
	if s.hasUsedHold || s.CurrentPiece == nil || !s.State.Active() {
		return false
	}

	current := s.CurrentPiece.Type
	if held, ok := s.HeldPiece.Get(); ok {
		s.installPiece(held)
	} else {
		s.advance()
	}
	s.HeldPiece.set(current)
	s.hasUsedHold = true
	return true
}

// HasUsedHold は現在のピースでホールドを使用済みかを返します。
func (s *PlayerGameState) HasUsedHold() bool {
	return s.hasUsedHold
}

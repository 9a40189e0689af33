package tetris

import "github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"

// PieceSnapshot は描画用の操作中ピースです。
type PieceSnapshot struct {
	Type       tetris.PieceType `json:"type"`
	X          int              `json:"x"`
	Y          int              `json:"y"`
	Rotation   int              `json:"rotation"`
	Cells      []tetris.Point   `json:"cells"`
	Appearance string           `json:"appearance,omitempty"`
}

// PlayerSnapshot はクライアントへ送信するための軽量なゲーム状態です。
// 内部のタイマーや乱数の状態は含みません。
type PlayerSnapshot struct {
	UserID       string             `json:"user_id"`
	State        State              `json:"state"`
	Board        *tetris.Board      `json:"board"`
	CurrentPiece *PieceSnapshot     `json:"current_piece"`
	GhostOffset  int                `json:"ghost_offset"`
	GhostCells   []tetris.Point     `json:"ghost_cells"`
	HeldPiece    *tetris.PieceType  `json:"held_piece"`
	CanHold      bool               `json:"can_hold"`
	NextPieces   []tetris.PieceType `json:"next_pieces"`
	Score        ScoreState         `json:"score"`
	ClearingRows []int              `json:"clearing_rows,omitempty"`
	IsGameOver   bool               `json:"is_game_over"`
}

// Snapshot は現在の状態を描画用の構造体に変換します。
// Board はコピーしないため、シリアライズは Update と同じゴルーチンで行う必要があります。
func (s *PlayerGameState) Snapshot() *PlayerSnapshot {
	snap := &PlayerSnapshot{
		UserID:      s.UserID,
		State:       s.State,
		Board:       s.Board,
		GhostOffset: s.GhostOffset,
		GhostCells:  ghostCells(s),
		CanHold:     s.State.Active() && !s.hasUsedHold,
		NextPieces:  s.Preview(),
		Score:       s.Score,
		IsGameOver:  s.IsGameOver(),
	}
	snap.Score.Pending = append([]ScoreEvent(nil), s.Score.Pending...)
	if len(s.ClearingRows) > 0 {
		snap.ClearingRows = append([]int(nil), s.ClearingRows...)
	}

	if held, ok := s.HeldPiece.Get(); ok {
		snap.HeldPiece = &held
	}

	if p := s.CurrentPiece; p != nil && !s.IsGameOver() {
		cells := p.Cells()
		snap.CurrentPiece = &PieceSnapshot{
			Type:       p.Type,
			X:          p.X,
			Y:          p.Y,
			Rotation:   p.Rotation,
			Cells:      cells[:],
			Appearance: p.Appearance,
		}
	}
	return snap
}

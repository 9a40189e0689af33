package terminal

import (
	"fmt"

	models "github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/services/tetris"
)

// CellKind は盤面の1マスに何を描くかです。
type CellKind int

const (
	CellEmpty CellKind = iota
	CellLocked
	CellClearing
	CellGhost
	CellActive
)

// GridCell は描画する1マスです。Piece は Empty 以外で意味を持ちます。
type GridCell struct {
	Kind  CellKind
	Piece models.PieceType
}

// View は1フレーム分の描画内容です。スナップショットから Layout で作られ、画面には依存しません。
type View struct {
	Width, Height int          // 表示する盤面の大きさ (隠し行を除く)
	Grid          [][]GridCell // [行][列]
	Hold          *models.PieceType
	CanHold       bool
	Next          []models.PieceType
	Stats         []string
	GameOver      bool
	Paused        bool
}

// hiddenRows は盤面の高さから、上端の表示しない行数を決めます。
func hiddenRows(height int) int {
	if height > models.BoardHiddenHeight {
		return models.BoardHiddenHeight
	}
	return 0
}

// Layout はスナップショットを描画用の View に変換します。
// 重なった場合は 操作中のピース > ゴースト > 固定済み の順に優先されます。
func Layout(snap *tetris.PlayerSnapshot) View {
	hidden := hiddenRows(snap.Board.Height())
	v := View{
		Width:    snap.Board.Width(),
		Height:   snap.Board.Height() - hidden,
		Hold:     snap.HeldPiece,
		CanHold:  snap.CanHold,
		Next:     snap.NextPieces,
		GameOver: snap.IsGameOver,
	}
	v.Grid = make([][]GridCell, v.Height)
	for y := range v.Grid {
		v.Grid[y] = make([]GridCell, v.Width)
	}

	put := func(x, y int, c GridCell) {
		y -= hidden
		if y < 0 || y >= v.Height || x < 0 || x >= v.Width {
			return
		}
		v.Grid[y][x] = c
	}

	clearing := make(map[int]bool, len(snap.ClearingRows))
	for _, row := range snap.ClearingRows {
		clearing[row] = true
	}
	for _, c := range snap.Board.Cells() {
		kind := CellLocked
		if clearing[c.Y] {
			kind = CellClearing
		}
		put(c.X, c.Y, GridCell{Kind: kind, Piece: c.Type})
	}

	if p := snap.CurrentPiece; p != nil {
		for _, g := range snap.GhostCells {
			if !snap.Board.Occupied(g) {
				put(g.X, g.Y, GridCell{Kind: CellGhost, Piece: p.Type})
			}
		}
		for _, c := range p.Cells {
			put(c.X, c.Y, GridCell{Kind: CellActive, Piece: p.Type})
		}
	}

	score := snap.Score
	v.Stats = []string{
		fmt.Sprintf("SCORE %d", score.Total),
		fmt.Sprintf("LEVEL %d", score.Level),
		fmt.Sprintf("LINES %d", score.LinesCleared),
	}
	if score.Combo > 1 {
		v.Stats = append(v.Stats, fmt.Sprintf("COMBO %d", score.Combo-1))
	}
	return v
}

// Shape は NEXT やホールド枠に描くためのピースの形です (回転0、左上を原点)。
func Shape(t models.PieceType) [4]models.Point {
	return models.NewPiece(t).Offsets()
}

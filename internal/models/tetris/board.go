package tetris

import (
	"encoding/json"
	"sort"

	"github.com/kamstrup/intmap"
)

const (
	BoardWidth         = 10 // テトリスボードの幅
	BoardHeight        = 22 // 表示部分20行 + 出現用の隠し行2行
	BoardHiddenHeight  = 2  // ピースが生成される見えない領域
	BoardVisibleHeight = BoardHeight - BoardHiddenHeight
)

// Cell はボードに固定されたブロック1つを表します。
// Type は元になったテトリミノで、描画時の見た目の選択にだけ使われます。
type Cell struct {
	X    int       `json:"x"`
	Y    int       `json:"y"`
	Type PieceType `json:"type"`
}

// Board は固定済みブロックを保持するテトリスのゲームボードです。
// 行番号 → その行のブロック列 という疎なマップで管理し、空の行は持ちません。
type Board struct {
	width  int
	height int
	rows   *intmap.Map[int, []Cell]
}

// NewBoard は標準サイズ (10x22) の空のボードを返します。
func NewBoard() *Board {
	return NewBoardSize(BoardWidth, BoardHeight)
}

// NewBoardSize は指定サイズの空のボードを返します。
func NewBoardSize(width, height int) *Board {
	return &Board{
		width:  width,
		height: height,
		rows:   intmap.New[int, []Cell](height),
	}
}

func (b *Board) Width() int  { return b.width }
func (b *Board) Height() int { return b.height }

// InBounds は座標が左右の壁と床の内側にあるかを判定します。
// 上方向（負の行）には制限を設けません。
func (b *Board) InBounds(p Point) bool {
	return p.X >= 0 && p.X < b.width && p.Y < b.height
}

// Occupied は指定座標にブロックが固定されているかを返します。ボード外は常にfalseです。
func (b *Board) Occupied(p Point) bool {
	row, ok := b.rows.Get(p.Y)
	if !ok {
		return false
	}
	for _, c := range row {
		if c.X == p.X {
			return true
		}
	}
	return false
}

// IsValid は指定されたピースを (dx, dy) だけずらした位置に置けるかどうかを判定します。
//
// Parameters:
//
//	p  : 判定を行うテトリミノ
//	dx : X軸方向の移動量
//	dy : Y軸方向の移動量
//
// Returns:
//
//	bool: 壁・床・既存ブロックのいずれとも重ならなければtrue
func (b *Board) IsValid(p *Piece, dx, dy int) bool {
	offset := Point{X: dx, Y: dy}
	for _, c := range p.Cells() {
		pos := c.Add(offset)
		if !b.InBounds(pos) {
			return false
		}
		if b.Occupied(pos) {
			return false
		}
	}
	return true
}

// DropDistance は (0,+k) が有効である最大のkを返します。ハードドロップとゴーストで使います。
func (b *Board) DropDistance(p *Piece) int {
	k := 0
	for b.IsValid(p, 0, k+1) {
		k++
	}
	return k
}

// MergePiece は落下したピースをボードに固定します。
// ボードより上（負の行）にはみ出したブロックは固定されず、その数を返します。
func (b *Board) MergePiece(p *Piece) int {
	dropped := 0
	for _, c := range p.Cells() {
		if c.Y < 0 {
			dropped++
			continue
		}
		b.add(Cell{X: c.X, Y: c.Y, Type: p.Type})
	}
	return dropped
}

func (b *Board) add(c Cell) {
	row, _ := b.rows.Get(c.Y)
	b.rows.Put(c.Y, append(row, c))
}

// RowCount は指定行のブロック数を返します。
func (b *Board) RowCount(y int) int {
	row, _ := b.rows.Get(y)
	return len(row)
}

// FullRows は揃っている行を昇順で返します。
func (b *Board) FullRows() []int {
	var full []int
	for y := 0; y < b.height; y++ {
		if b.RowCount(y) == b.width {
			full = append(full, y)
		}
	}
	return full
}

// ClearRows は指定された行を消去し、上のブロックを落とします。
//
// 行番号の小さい順に1行ずつ処理し、消した行より上にあるすべての行を1段下げます。
// 下げたブロックの行番号はマップのキーと一時的にずれるため、最後にブロック一覧から
// 行マップを作り直します。
func (b *Board) ClearRows(rows []int) {
	sorted := append([]int(nil), rows...)
	sort.Ints(sorted)

	for _, y := range sorted {
		b.rows.Del(y)
		for above := y - 1; above >= 0; above-- {
			cells, ok := b.rows.Get(above)
			if !ok {
				continue
			}
			for i := range cells {
				cells[i].Y++
			}
		}
	}
	b.rebuild()
}

// rebuild はブロックの実際の行番号に合わせて行マップを作り直します。
func (b *Board) rebuild() {
	var all []Cell
	for y := 0; y < b.height; y++ {
		if row, ok := b.rows.Get(y); ok {
			all = append(all, row...)
		}
	}
	b.rows.Clear()
	for _, c := range all {
		b.add(c)
	}
}

// Cells はすべての固定ブロックを行・列の順に並べて返します。
func (b *Board) Cells() []Cell {
	all := make([]Cell, 0, b.Count())
	for y := 0; y < b.height; y++ {
		row, ok := b.rows.Get(y)
		if !ok {
			continue
		}
		start := len(all)
		all = append(all, row...)
		sort.Slice(all[start:], func(i, j int) bool {
			return all[start+i].X < all[start+j].X
		})
	}
	return all
}

// Count は固定ブロックの総数を返します。
func (b *Board) Count() int {
	n := 0
	for y := 0; y < b.height; y++ {
		n += b.RowCount(y)
	}
	return n
}

// Fill はテストや盤面の復元のためにブロックを直接置きます。
// ボード外や既に埋まっているマスは無視されます。
func (b *Board) Fill(t PieceType, points ...Point) {
	for _, p := range points {
		if p.Y < 0 || !b.InBounds(p) || b.Occupied(p) {
			continue
		}
		b.add(Cell{X: p.X, Y: p.Y, Type: t})
	}
}

// MarshalJSON はボードを描画用のJSONに変換します。
func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Cells  []Cell `json:"cells"`
	}{b.width, b.height, b.Cells()})
}

// UnmarshalJSON は MarshalJSON の形式からボードを復元します。
func (b *Board) UnmarshalJSON(data []byte) error {
	var raw struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Cells  []Cell `json:"cells"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = *NewBoardSize(raw.Width, raw.Height)
	for _, c := range raw.Cells {
		b.Fill(c.Type, Point{X: c.X, Y: c.Y})
	}
	return nil
}

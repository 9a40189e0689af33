package terminal

import (
	"github.com/gdamore/tcell/v2"

	models "github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
)

// Canvas は Renderer が描画に使う画面の機能です。tcell.Screen が満たします。
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Clear()
	Show()
}

var pieceColors = map[models.PieceType]tcell.Color{
	models.TypeI: tcell.ColorAqua,
	models.TypeO: tcell.ColorYellow,
	models.TypeT: tcell.ColorFuchsia,
	models.TypeS: tcell.ColorLime,
	models.TypeZ: tcell.ColorRed,
	models.TypeJ: tcell.ColorBlue,
	models.TypeL: tcell.ColorOrange,
}

var (
	styleFrame = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleText  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleGhost = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleClear = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	styleAlert = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// 1マスは横2文字で描く
const cellWidth = 2

// Renderer は View を端末に描画します。
type Renderer struct {
	canvas Canvas
	// OriginX, OriginY は盤面の枠の左上です
	OriginX, OriginY int
}

func NewRenderer(c Canvas) *Renderer {
	return &Renderer{canvas: c, OriginX: 12, OriginY: 1}
}

// Draw は画面を消してから1フレーム分を描画します。
func (r *Renderer) Draw(v View) {
	r.canvas.Clear()
	r.drawFrame(v)
	r.drawGrid(v)

	// 左側: ホールド
	r.text(1, r.OriginY, "HOLD", styleText)
	if v.Hold != nil {
		style := pieceStyle(*v.Hold)
		if !v.CanHold {
			style = styleGhost
		}
		r.shape(1, r.OriginY+1, *v.Hold, style)
	}

	// 右側: NEXT と得点
	side := r.OriginX + v.Width*cellWidth + 3
	r.text(side, r.OriginY, "NEXT", styleText)
	y := r.OriginY + 1
	for _, t := range v.Next {
		r.shape(side, y, t, pieceStyle(t))
		y += 3
	}
	y++
	for _, line := range v.Stats {
		r.text(side, y, line, styleText)
		y++
	}

	mid := r.OriginY + v.Height/2
	switch {
	case v.GameOver:
		r.text(r.OriginX+1, mid, "GAME OVER", styleAlert)
		r.text(r.OriginX+1, mid+1, "r:retry q:quit", styleText)
	case v.Paused:
		r.text(r.OriginX+1, mid, "PAUSED", styleAlert)
	}
	r.canvas.Show()
}

func (r *Renderer) drawFrame(v View) {
	left := r.OriginX
	right := r.OriginX + v.Width*cellWidth + 1
	bottom := r.OriginY + v.Height
	for y := r.OriginY; y < bottom; y++ {
		r.canvas.SetContent(left, y, '│', nil, styleFrame)
		r.canvas.SetContent(right, y, '│', nil, styleFrame)
	}
	r.canvas.SetContent(left, bottom, '└', nil, styleFrame)
	r.canvas.SetContent(right, bottom, '┘', nil, styleFrame)
	for x := left + 1; x < right; x++ {
		r.canvas.SetContent(x, bottom, '─', nil, styleFrame)
	}
}

func (r *Renderer) drawGrid(v View) {
	for y, row := range v.Grid {
		for x, c := range row {
			ch, style := ' ', tcell.StyleDefault
			switch c.Kind {
			case CellLocked, CellActive:
				ch, style = '█', pieceStyle(c.Piece)
			case CellClearing:
				ch, style = '█', styleClear
			case CellGhost:
				ch, style = '░', styleGhost
			}
			sx := r.OriginX + 1 + x*cellWidth
			for i := 0; i < cellWidth; i++ {
				r.canvas.SetContent(sx+i, r.OriginY+y, ch, nil, style)
			}
		}
	}
}

func (r *Renderer) shape(x, y int, t models.PieceType, style tcell.Style) {
	for _, p := range Shape(t) {
		for i := 0; i < cellWidth; i++ {
			r.canvas.SetContent(x+p.X*cellWidth+i, y+p.Y, '█', nil, style)
		}
	}
}

func (r *Renderer) text(x, y int, s string, style tcell.Style) {
	for _, ch := range s {
		r.canvas.SetContent(x, y, ch, nil, style)
		x++
	}
}

func pieceStyle(t models.PieceType) tcell.Style {
	color, ok := pieceColors[t]
	if !ok {
		color = tcell.ColorWhite
	}
	return tcell.StyleDefault.Foreground(color)
}

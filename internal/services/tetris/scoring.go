package tetris

import (
	"fmt"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
)

// 基本点（レベル倍率をかける前の値）
const (
	ScoreSingle = 100
	ScoreDouble = 300
	ScoreTriple = 500
	ScoreTetris = 800

	ScoreMiniSpinSingle = 200
	ScoreMiniSpinDouble = 400

	ScoreSpinSingle = 800
	ScoreSpinDouble = 1200
	ScoreSpinTriple = 1600
)

// SpinKind はT-Spinの判定結果です。
type SpinKind int

const (
	SpinNone SpinKind = iota
	SpinMini
	SpinFull
)

func (k SpinKind) String() string {
	switch k {
	case SpinMini:
		return "mini"
	case SpinFull:
		return "full"
	default:
		return "none"
	}
}

func (k SpinKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SpinKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none":
		*k = SpinNone
	case "mini":
		*k = SpinMini
	case "full":
		*k = SpinFull
	default:
		return fmt.Errorf("unknown spin kind %q", string(b))
	}
	return nil
}

// ScoreEventKind は加点イベントの種類です。
type ScoreEventKind string

const (
	EventLineClear ScoreEventKind = "line_clear"
	EventSpin      ScoreEventKind = "spin"
	EventDrop      ScoreEventKind = "drop"
)

// ScoreEvent はアニメーション表示を待っている加点1件です。
type ScoreEvent struct {
	Kind   ScoreEventKind `json:"kind"`
	Lines  int            `json:"lines,omitempty"`
	Spin   SpinKind       `json:"spin,omitempty"`
	Points int            `json:"points"`
}

// LineClearPoints は通常のライン消去の得点を返します。
func LineClearPoints(lines, level int) int {
	base := 0
	switch lines {
	case 1: // Single
		base = ScoreSingle
	case 2: // Double
		base = ScoreDouble
	case 3: // Triple
		base = ScoreTriple
	case 4: // Tetris
		base = ScoreTetris
	}
	return base * level
}

// SpinPoints はT-Spin (mini / full) の得点を返します。表にないライン数は0点です。
func SpinPoints(lines int, mini bool, level int) int {
	base := 0
	if mini {
		switch lines {
		case 1:
			base = ScoreMiniSpinSingle
		case 2:
			base = ScoreMiniSpinDouble
		}
	} else {
		switch lines {
		case 1:
			base = ScoreSpinSingle
		case 2:
			base = ScoreSpinDouble
		case 3:
			base = ScoreSpinTriple
		}
	}
	return base * level
}

// DropPoints は固定時の得点です。落下距離ではなく、最終的な行番号そのものを使います。
func DropPoints(finalRow int, hardDrop bool) int {
	if hardDrop {
		return finalRow * 2
	}
	return finalRow
}

// ScoreState は合計得点と、まだ合計に反映されていない加点イベントのキューです。
// イベントは先頭から1件ずつ ApplyNext で反映されます。
type ScoreState struct {
	Total        int          `json:"total"`
	Level        int          `json:"level"`
	Pending      []ScoreEvent `json:"pending"`
	Combo        int          `json:"combo"`
	LinesCleared int          `json:"lines_cleared"`
}

func (s *ScoreState) push(e ScoreEvent) {
	s.Pending = append(s.Pending, e)
}

// ScoreLines はライン消去のイベントを追加します。
func (s *ScoreState) ScoreLines(lines int) {
	s.push(ScoreEvent{Kind: EventLineClear, Lines: lines, Points: LineClearPoints(lines, s.Level)})
}

// ScoreSpin はT-Spinのイベントを追加します。0点になる場合は追加しません。
func (s *ScoreState) ScoreSpin(lines int, kind SpinKind) {
	points := SpinPoints(lines, kind == SpinMini, s.Level)
	if points == 0 {
		return
	}
	s.push(ScoreEvent{Kind: EventSpin, Lines: lines, Spin: kind, Points: points})
}

// ScoreDrop は固定位置に応じたドロップのイベントを追加します。
func (s *ScoreState) ScoreDrop(finalRow int, hardDrop bool) {
	s.push(ScoreEvent{Kind: EventDrop, Points: DropPoints(finalRow, hardDrop)})
}

// RecordClear は消去ライン数とコンボ数を更新します。コンボ数は表示用で、得点には影響しません。
// lines が0ならコンボは途切れます。
func (s *ScoreState) RecordClear(lines int) {
	if lines == 0 {
		s.Combo = 0
		return
	}
	s.Combo++
	s.LinesCleared += lines
}

// ApplyNext は先頭のイベントを合計に反映して返します。キューが空ならfalseを返します。
func (s *ScoreState) ApplyNext() (ScoreEvent, bool) {
	if len(s.Pending) == 0 {
		return ScoreEvent{}, false
	}
	e := s.Pending[0]
	s.Pending = s.Pending[1:]
	s.Total += e.Points
	return e, true
}

// ApplyAll はすべてのイベントを反映し、新しい合計を返します。
func (s *ScoreState) ApplyAll() int {
	for {
		if _, ok := s.ApplyNext(); !ok {
			return s.Total
		}
	}
}

// PendingPoints はまだ反映されていない得点の合計です。
func (s *ScoreState) PendingPoints() int {
	sum := 0
	for _, e := range s.Pending {
		sum += e.Points
	}
	return sum
}

// DetectTSpin は固定されたピースがT-Spinかどうかを判定します。
//
// T-ミノが回転で最後に動いた場合だけ、基準点から見た4隅
// (0,0) (2,0) (2,2) (0,2) のうち埋まっている数を数えます。ボード外の隅は
// 埋まっているとは見なしません。3つ以上埋まっていればT-Spinで、
// 向いている側の2隅 [rotation, rotation+1] が両方埋まっていれば mini、それ以外は full です。
//
// Parameters:
//
//	board            : ピースを固定した後のボード
//	p                : 固定されたピース
//	lastMoveRotation : 最後の操作が回転だったか
func DetectTSpin(board *tetris.Board, p *tetris.Piece, lastMoveRotation bool) SpinKind {
	if p.Type != tetris.TypeT || !lastMoveRotation {
		return SpinNone
	}
	origin := tetris.Point{X: p.X, Y: p.Y}
	corners := [4]tetris.Point{
		origin,
		origin.Add(tetris.Point{X: 2, Y: 0}),
		origin.Add(tetris.Point{X: 2, Y: 2}),
		origin.Add(tetris.Point{X: 0, Y: 2}),
	}

	active := 0
	for _, c := range corners {
		if board.Occupied(c) {
			active++
		}
	}
	if active < 3 {
		return SpinNone
	}

	facing := 0
	for _, i := range [2]int{p.Rotation, (p.Rotation + 1) % tetris.NumRotations} {
		if board.Occupied(corners[i]) {
			facing++
		}
	}
	if facing == 2 {
		return SpinMini
	}
	return SpinFull
}

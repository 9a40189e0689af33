package tetris

import (
	"math/rand"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
)

// Shuffler はバッグの並びを決める乱数順列の供給元です。
// テストでは固定順を返す実装を差し込むことで、ピース列を決定的にできます。
type Shuffler interface {
	Shuffle(types []tetris.PieceType) []tetris.PieceType
}

// randShuffler は math/rand による一様なシャッフルです。
type randShuffler struct {
	r *rand.Rand
}

// NewRandShuffler は指定したシードで初期化したシャッフラーを返します。
func NewRandShuffler(seed int64) Shuffler {
	return &randShuffler{r: rand.New(rand.NewSource(seed))}
}

func (s *randShuffler) Shuffle(types []tetris.PieceType) []tetris.PieceType {
	s.r.Shuffle(len(types), func(i, j int) {
		types[i], types[j] = types[j], types[i]
	})
	return types
}

// Randomizer は7-bagシステムに基づくピース列とNEXTキューを管理します。
// バッグが空になったら7種類を補充してシャッフルし、先頭から取り出します。
type Randomizer struct {
	shuffler  Shuffler
	bag       []tetris.PieceType
	preview   []tetris.PieceType
	lookahead int
}

// NewRandomizer は指定した先読み数のNEXTキューを満たした状態で Randomizer を返します。
func NewRandomizer(shuffler Shuffler, lookahead int) *Randomizer {
	if lookahead < 1 {
		lookahead = 1
	}
	r := &Randomizer{
		shuffler:  shuffler,
		lookahead: lookahead,
	}
	r.fill()
	return r
}

// fill はバッグが空なら補充し、NEXTキューを先読み数まで埋めます。
func (r *Randomizer) fill() {
	for len(r.bag) == 0 || len(r.preview) < r.lookahead {
		if len(r.bag) == 0 {
			fresh := make([]tetris.PieceType, len(tetris.AllPieceTypes))
			copy(fresh, tetris.AllPieceTypes[:])
			r.bag = r.shuffler.Shuffle(fresh)
		}
		if len(r.preview) < r.lookahead {
			r.preview = append(r.preview, r.bag[0])
			r.bag = r.bag[1:]
		}
	}
}

// Next はNEXTキューの先頭を取り出し、キューを補充します。
func (r *Randomizer) Next() tetris.PieceType {
	next := r.preview[0]
	r.preview = r.preview[1:]
	r.fill()
	return next
}

// Preview はNEXTキューのコピーを返します。
func (r *Randomizer) Preview() []tetris.PieceType {
	out := make([]tetris.PieceType, len(r.preview))
	copy(out, r.preview)
	return out
}

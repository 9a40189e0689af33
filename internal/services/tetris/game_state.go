package tetris

import (
	"fmt"
	"log"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
)

// State はゲーム進行のステートマシンの状態です。
type State int

const (
	StatePlaying  State = iota // ピースを操作中
	StateLocking               // 操作中だが、これ以上下に落ちられない（固定待ち）
	StateClearing              // ライン消去アニメーション中。入力・重力は止まる
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StateLocking:
		return "locking"
	case StateClearing:
		return "clearing"
	case StateGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st := StatePlaying; st <= StateGameOver; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown game state %q", string(b))
}

// Active はピースを操作できる状態 (Playing / Locking) かを返します。
func (s State) Active() bool {
	return s == StatePlaying || s == StateLocking
}

// PlayerGameState は単一プレイヤーのテトリスゲーム状態です。
// すべての更新は Update を呼ぶ1つのゴルーチンから行われる前提で、ロックは持ちません。
type PlayerGameState struct {
	UserID       string
	Settings     GameSettings
	Board        *tetris.Board
	CurrentPiece *tetris.Piece
	HeldPiece    HoldSlot
	Score        ScoreState
	State        State

	// ClearingRows はライン消去アニメーション中の行です（昇順）。
	ClearingRows []int
	// GhostOffset はハードドロップした場合の落下量です。毎フレーム更新されます。
	GhostOffset int
	// LastLock は直前に固定されたピースの結果です。
	LastLock *LockResult

	randomizer *Randomizer
	appearance AppearanceProvider

	gravityTimer     time.Duration
	lockTimer        time.Duration
	dasDir           int // -1: 左, 1: 右, 0: なし
	dasTimer         time.Duration
	dasRepeating     bool
	clearTimer       time.Duration
	lastMoveRotation bool
	hasUsedHold      bool
}

// LockResult はピース固定時に起きたことをまとめたものです。
type LockResult struct {
	Piece     tetris.Piece `json:"piece"`
	HardDrop  bool         `json:"hard_drop"`
	Rows      []int        `json:"rows"`
	Spin      SpinKind     `json:"spin"`
	LockedOut bool         `json:"locked_out"`
}

// NewPlayerGameState は新しいプレイヤーのゲーム状態を初期化し、最初のピースを出現させて返します。
//
// Parameters:
//
//	userID     : プレイヤーのユーザーID
//	settings   : ゲーム設定（不正な値は Normalize で丸められます）
//	shuffler   : 7-bag の並びを決めるシャッフラー (nil なら現在時刻をシードに使う)
//	appearance : ピースの見た目を決める装飾 (nil 可)
//
// Returns:
//
//	*PlayerGameState: 初期化されたゲーム状態のポインタ
func NewPlayerGameState(userID string, settings GameSettings, shuffler Shuffler, appearance AppearanceProvider) *PlayerGameState {
	settings = settings.Normalize()
	if shuffler == nil {
		shuffler = NewRandShuffler(time.Now().UnixNano())
	}

	state := &PlayerGameState{
		UserID:     userID,
		Settings:   settings,
		Board:      tetris.NewBoardSize(settings.BoardWidth, settings.BoardHeight),
		Score:      ScoreState{Level: settings.StartLevel},
		State:      StatePlaying,
		randomizer: NewRandomizer(shuffler, settings.PreviewCount),
		appearance: appearance,
	}
	state.advance()
	return state
}

// Preview はNEXTキューの中身を返します。
func (s *PlayerGameState) Preview() []tetris.PieceType {
	return s.randomizer.Preview()
}

// IsGameOver はゲームオーバーかどうかを返します。
func (s *PlayerGameState) IsGameOver() bool {
	return s.State == StateGameOver
}

// LastMoveWasRotation は最後にピースを動かした操作が回転だったかを返します。
func (s *PlayerGameState) LastMoveWasRotation() bool {
	return s.lastMoveRotation
}

// LockTimer は固定猶予の経過時間です。
func (s *PlayerGameState) LockTimer() time.Duration {
	return s.lockTimer
}

// advance はNEXTキューから次のピースを取り出して操作対象にします。
func (s *PlayerGameState) advance() {
	s.installPiece(s.randomizer.Next())
}

// installPiece は指定された種類のピースを出現位置に置き、ピースごとの状態をリセットします。
// 出現位置で既に重なっている場合はゲームオーバー (ブロックアウト) です。
func (s *PlayerGameState) installPiece(t tetris.PieceType) {
	p := tetris.NewPiece(t)
	if s.appearance != nil {
		p.Appearance = s.appearance.Appearance(t)
	}
	s.CurrentPiece = p
	s.hasUsedHold = false
	s.lastMoveRotation = false
	s.lockTimer = 0
	s.gravityTimer = 0
	s.GhostOffset = s.Board.DropDistance(p)

	// 消去アニメーション中は揃った行がまだ残っているので、判定は行を消した後に行う
	if s.State != StateClearing && !s.Board.IsValid(p, 0, 0) {
		s.topOut("block out")
	}
}

// topOut はゲームオーバーに遷移させます。
func (s *PlayerGameState) topOut(reason string) {
	if s.State == StateGameOver {
		return
	}
	s.State = StateGameOver
	s.GhostOffset = 0
	log.Printf("Player %s Game Over (%s)! Final Score: %d, Lines Cleared: %d", s.UserID, reason, s.Score.Total+s.Score.PendingPoints(), s.Score.LinesCleared)
}

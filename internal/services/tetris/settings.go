package tetris

import (
	"time"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
)

// GameSettings はゲームの速度やボードサイズなど、1プレイ全体に影響する設定値です。
// 外部から上書きできるのはここに定義された項目だけです。
type GameSettings struct {
	BoardWidth  int `json:"board_width"`
	BoardHeight int `json:"board_height"`

	Gravity          time.Duration `json:"gravity"`            // 通常の自動落下間隔
	SoftDropGravity  time.Duration `json:"soft_drop_gravity"`  // ソフトドロップ中の落下間隔
	GravityLevelStep time.Duration `json:"gravity_level_step"` // レベルごとに短縮する落下間隔 (0で一定)
	MinGravity       time.Duration `json:"min_gravity"`        // 落下間隔の下限

	LockDelay time.Duration `json:"lock_delay"` // 着地してから固定されるまでの猶予時間
	DASDelay  time.Duration `json:"das_delay"`  // 横移動のリピート開始までの時間
	DASRepeat time.Duration `json:"das_repeat"` // リピート開始後の横移動間隔

	PreviewCount   int           `json:"preview_count"`   // NEXTに表示する個数
	ClearAnimation time.Duration `json:"clear_animation"` // ライン消去アニメーションの長さ

	StartLevel   int `json:"start_level"`
	LevelUpLines int `json:"level_up_lines"` // レベルアップに必要なライン数 (0でレベル固定)
}

// DefaultGameSettings は標準の設定値を返します。
func DefaultGameSettings() GameSettings {
	return GameSettings{
		BoardWidth:       tetris.BoardWidth,
		BoardHeight:      tetris.BoardHeight,
		Gravity:          800 * time.Millisecond,
		SoftDropGravity:  50 * time.Millisecond,
		GravityLevelStep: 0,
		MinGravity:       50 * time.Millisecond,
		LockDelay:        time.Second,
		DASDelay:         250 * time.Millisecond,
		DASRepeat:        80 * time.Millisecond,
		PreviewCount:     2,
		ClearAnimation:   708 * time.Millisecond, // 0.6秒の消去 + 列ごとの時間差
		StartLevel:       1,
		LevelUpLines:     10,
	}
}

// Normalize はゲームを進められない値を最小限の値に丸めます。
// 設定の読み込みに失敗していてもゲームの状態が壊れないようにするためのものです。
func (s GameSettings) Normalize() GameSettings {
	def := DefaultGameSettings()
	if s.BoardWidth < 4 {
		s.BoardWidth = def.BoardWidth
	}
	if s.BoardHeight < 4 {
		s.BoardHeight = def.BoardHeight
	}
	if s.Gravity <= 0 {
		s.Gravity = def.Gravity
	}
	if s.SoftDropGravity <= 0 {
		s.SoftDropGravity = def.SoftDropGravity
	}
	if s.GravityLevelStep < 0 {
		s.GravityLevelStep = 0
	}
	if s.MinGravity <= 0 {
		s.MinGravity = def.MinGravity
	}
	if s.LockDelay < 0 {
		s.LockDelay = 0
	}
	if s.DASDelay < 0 {
		s.DASDelay = 0
	}
	if s.DASRepeat <= 0 {
		s.DASRepeat = def.DASRepeat
	}
	if s.PreviewCount < 1 {
		s.PreviewCount = 1
	}
	if s.ClearAnimation < 0 {
		s.ClearAnimation = 0
	}
	if s.StartLevel < 1 {
		s.StartLevel = 1
	}
	if s.LevelUpLines < 0 {
		s.LevelUpLines = 0
	}
	return s
}

// GetFallInterval は現在のレベルに基づいた自動落下間隔を計算して返します。
func (s GameSettings) GetFallInterval(level int) time.Duration {
	interval := s.Gravity - time.Duration(level-s.StartLevel)*s.GravityLevelStep
	if interval < s.MinGravity {
		interval = s.MinGravity
	}
	return interval
}

// LevelFor はクリアしたライン数から現在のレベルを計算します。
func (s GameSettings) LevelFor(linesCleared int) int {
	if s.LevelUpLines == 0 {
		return s.StartLevel
	}
	return s.StartLevel + linesCleared/s.LevelUpLines
}

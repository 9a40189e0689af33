// Package config は環境変数 (.env を含む) からアプリケーションの設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/services/tetris"
)

// Config はサーバー全体の設定です。
type Config struct {
	Port           string
	DatabaseURL    string // 空の場合は結果を保存しない
	JWTSecret      string
	BypassAuth     bool
	TickRate       time.Duration
	AllowedOrigins []string
	Game           tetris.GameSettings
}

var defaultAllowedOrigins = []string{"http://localhost:3000"}

// LoadDotEnv は本番環境以外で .env ファイルを読み込みます。ファイルがなくてもエラーにはしません。
func LoadDotEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: Error loading .env file (this is fine in production): %v", err)
	}
}

// Load は環境変数から設定を読み込みます。
// 不正な値はすべてまとめてエラーとして返し、その項目はデフォルト値のままにします。
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		Port:           getString("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		BypassAuth:     p.getBool("BYPASS_AUTH", false),
		TickRate:       p.getDuration("TICK_RATE_MS", tetris.DefaultTickRate),
		AllowedOrigins: getList("ALLOWED_ORIGINS", defaultAllowedOrigins),
	}
	cfg.Game = loadGameSettings(p)

	if !cfg.BypassAuth && cfg.JWTSecret == "" {
		p.errs = append(p.errs, errors.New("JWT_SECRET is required unless BYPASS_AUTH=true"))
	}
	return cfg, p.err()
}

// LoadGameSettings はゲーム設定だけを読み込みます。ターミナル版で使います。
func LoadGameSettings() (tetris.GameSettings, error) {
	p := &parser{}
	settings := loadGameSettings(p)
	return settings, p.err()
}

func loadGameSettings(p *parser) tetris.GameSettings {
	def := tetris.DefaultGameSettings()
	return tetris.GameSettings{
		BoardWidth:       p.getInt("BOARD_WIDTH", def.BoardWidth),
		BoardHeight:      p.getInt("BOARD_HEIGHT", def.BoardHeight),
		Gravity:          p.getDuration("GRAVITY_MS", def.Gravity),
		SoftDropGravity:  p.getDuration("SOFT_DROP_GRAVITY_MS", def.SoftDropGravity),
		GravityLevelStep: p.getDuration("GRAVITY_LEVEL_STEP_MS", def.GravityLevelStep),
		MinGravity:       p.getDuration("MIN_GRAVITY_MS", def.MinGravity),
		LockDelay:        p.getDuration("LOCK_DELAY_MS", def.LockDelay),
		DASDelay:         p.getDuration("DAS_DELAY_MS", def.DASDelay),
		DASRepeat:        p.getDuration("DAS_REPEAT_MS", def.DASRepeat),
		PreviewCount:     p.getInt("PREVIEW_COUNT", def.PreviewCount),
		ClearAnimation:   p.getDuration("CLEAR_ANIMATION_MS", def.ClearAnimation),
		StartLevel:       p.getInt("START_LEVEL", def.StartLevel),
		LevelUpLines:     p.getInt("LEVEL_UP_LINES", def.LevelUpLines),
	}.Normalize()
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parser は不正な値のエラーを溜めながら環境変数を読みます。
type parser struct {
	errs []error
}

func (p *parser) getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q: %w", key, v, err))
		return def
	}
	return n
}

// getDuration はミリ秒の整数として読みます。
func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid milliseconds %q", key, v))
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func (p *parser) getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q: %w", key, v, err))
		return def
	}
	return b
}

func (p *parser) err() error {
	return errors.Join(p.errs...)
}

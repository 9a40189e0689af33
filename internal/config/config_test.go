package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/services/tetris"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BYPASS_AUTH", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.BypassAuth)
	assert.Equal(t, tetris.DefaultTickRate, cfg.TickRate)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, tetris.DefaultGameSettings(), cfg.Game)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("GRAVITY_MS", "500")
	t.Setenv("LOCK_DELAY_MS", "300")
	t.Setenv("PREVIEW_COUNT", "5")
	t.Setenv("BOARD_WIDTH", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.Game.Gravity)
	assert.Equal(t, 300*time.Millisecond, cfg.Game.LockDelay)
	assert.Equal(t, 5, cfg.Game.PreviewCount)
	assert.Equal(t, 12, cfg.Game.BoardWidth)
}

func TestLoad_MalformedValues(t *testing.T) {
	t.Setenv("BYPASS_AUTH", "true")
	t.Setenv("GRAVITY_MS", "fast")
	t.Setenv("START_LEVEL", "one")

	cfg, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GRAVITY_MS")
	assert.Contains(t, err.Error(), "START_LEVEL")
	// 不正な項目はデフォルトのまま
	assert.Equal(t, tetris.DefaultGameSettings().Gravity, cfg.Game.Gravity)
	assert.Equal(t, 1, cfg.Game.StartLevel)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("BYPASS_AUTH", "false")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadGameSettings_Normalizes(t *testing.T) {
	t.Setenv("PREVIEW_COUNT", "0")

	settings, err := LoadGameSettings()
	require.NoError(t, err)
	assert.Equal(t, 1, settings.PreviewCount)
}

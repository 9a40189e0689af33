package tetris

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models/tetris"
)

// fakeResultRepository はメモリ上に結果を保存する ResultRepository です。
type fakeResultRepository struct {
	mu      sync.Mutex
	results []models.Result
	err     error
}

func (r *fakeResultRepository) CreateResult(_ *sql.Tx, result models.Result) (*models.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	result.ID = int64(len(r.results) + 1)
	r.results = append(r.results, result)
	return &result, nil
}

func (r *fakeResultRepository) GetTopResults(limit int) ([]models.ResultResponse, error) {
	return nil, nil
}

func (r *fakeResultRepository) GetUserBestScore(userID string) (*models.Result, error) {
	return nil, nil
}

func (r *fakeResultRepository) GetUserRanking(userID string) (*models.ResultResponse, error) {
	return nil, nil
}

func (r *fakeResultRepository) saved() []models.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Result(nil), r.results...)
}

func newTestManager(repo *fakeResultRepository) *SessionManager {
	cfg := SessionManagerConfig{
		Settings:    quietSettings(),
		NewShuffler: func() Shuffler { return orderedShuffler{} },
	}
	if repo != nil {
		cfg.Results = repo
	}
	return NewSessionManager(cfg)
}

func decodeSnapshot(t *testing.T, sm *SessionManager, sessionID string) SessionSnapshot {
	t.Helper()
	raw, err := sm.GetSessionSnapshot(sessionID)
	require.NoError(t, err)

	var snap SessionSnapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	return snap
}

func TestSessionManager_CreateSession(t *testing.T) {
	sm := newTestManager(nil)

	id, err := sm.CreateSession("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	info, err := sm.GetSessionInfo(id)
	require.NoError(t, err)
	assert.Equal(t, "user-1", info.UserID)
	assert.Equal(t, StatusPlaying, info.Status)

	snap := decodeSnapshot(t, sm, id)
	assert.Equal(t, id, snap.ID)
	require.NotNil(t, snap.Player)
	require.NotNil(t, snap.Player.CurrentPiece)
	assert.Equal(t, tetris.TypeI, snap.Player.CurrentPiece.Type)

	_, err = sm.CreateSession("")
	assert.Error(t, err)
}

func TestSessionManager_UnknownSession(t *testing.T) {
	sm := newTestManager(nil)

	_, err := sm.GetSessionInfo("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = sm.GetSessionSnapshot("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, sm.RegisterClient("missing", "user-1", nil), ErrSessionNotFound)
}

func TestSessionManager_RegisterClientChecksOwner(t *testing.T) {
	sm := newTestManager(nil)
	id, err := sm.CreateSession("user-1")
	require.NoError(t, err)

	assert.ErrorIs(t, sm.RegisterClient(id, "user-2", nil), ErrNotSessionOwner)
}

func TestSessionManager_InputIsAppliedOnTick(t *testing.T) {
	sm := newTestManager(nil)
	id, err := sm.CreateSession("user-1")
	require.NoError(t, err)

	sm.applyInput(PlayerInputEvent{UserID: "user-1", SessionID: id, Action: "move_left", Type: "tap"})
	sm.applyInput(PlayerInputEvent{UserID: "user-2", SessionID: id, Action: "hard_drop"}) // 他人の入力は無視
	sm.applyInput(PlayerInputEvent{UserID: "user-1", SessionID: id, Action: "jump"})
	sm.Tick(16 * time.Millisecond)

	snap := decodeSnapshot(t, sm, id)
	require.NotNil(t, snap.Player.CurrentPiece)
	assert.Equal(t, tetris.SpawnX-1, snap.Player.CurrentPiece.X)
	assert.Empty(t, snap.Player.Board.Cells())

	sm.applyInput(PlayerInputEvent{UserID: "user-1", SessionID: id, Action: "hard_drop"})
	sm.Tick(16 * time.Millisecond)

	snap = decodeSnapshot(t, sm, id)
	assert.Equal(t, tetris.TypeO, snap.Player.CurrentPiece.Type)
	assert.Len(t, snap.Player.Board.Cells(), 4)
}

func TestSessionManager_GameOverSavesResult(t *testing.T) {
	repo := &fakeResultRepository{}
	sm := newTestManager(repo)
	id, err := sm.CreateSession("user-1")
	require.NoError(t, err)

	sm.mu.RLock()
	session := sm.sessions[id]
	sm.mu.RUnlock()
	session.State.Board.Fill(tetris.TypeJ, tetris.Point{X: 4, Y: 0})

	sm.applyInput(PlayerInputEvent{UserID: "user-1", SessionID: id, Action: "hard_drop", Type: "tap"})
	sm.Tick(16 * time.Millisecond)
	sm.saves.Wait()

	info, err := sm.GetSessionInfo(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, info.Status)
	assert.False(t, info.EndedAt.IsZero())

	snap := decodeSnapshot(t, sm, id)
	assert.Equal(t, StatusFinished, snap.Status)
	assert.True(t, snap.Player.IsGameOver)
	require.NotNil(t, snap.EndedAt)

	saved := repo.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "user-1", saved[0].UserID)
	assert.Equal(t, id, saved[0].SessionID)
	assert.Equal(t, 40, saved[0].Score, "pending drop points count toward the final score")
	assert.Equal(t, 1, saved[0].Level)

	assert.ErrorIs(t, sm.RegisterClient(id, "user-1", nil), ErrSessionFinished)

	// 終了後の入力やティックでは何も変わらない
	sm.applyInput(PlayerInputEvent{UserID: "user-1", SessionID: id, Action: "hard_drop"})
	sm.Tick(16 * time.Millisecond)
	sm.saves.Wait()
	assert.Len(t, repo.saved(), 1)
}

func TestSessionManager_SaveErrorIsNotFatal(t *testing.T) {
	repo := &fakeResultRepository{err: errors.New("db down")}
	sm := newTestManager(repo)
	id, err := sm.CreateSession("user-1")
	require.NoError(t, err)

	sm.mu.RLock()
	session := sm.sessions[id]
	sm.mu.RUnlock()
	session.State.Board.Fill(tetris.TypeJ, tetris.Point{X: 4, Y: 0})

	sm.applyInput(PlayerInputEvent{UserID: "user-1", SessionID: id, Action: "hard_drop"})
	sm.Tick(16 * time.Millisecond)
	sm.saves.Wait()

	info, err := sm.GetSessionInfo(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, info.Status)
	assert.Empty(t, repo.saved())
}

func TestSessionManager_RunAndShutdown(t *testing.T) {
	sm := NewSessionManager(SessionManagerConfig{Settings: quietSettings(), TickRate: time.Millisecond})
	done := make(chan struct{})
	go func() {
		sm.Run()
		close(done)
	}()

	sm.Shutdown()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after Shutdown")
	}
	sm.Shutdown() // 2回目の呼び出しでも panic しない
}

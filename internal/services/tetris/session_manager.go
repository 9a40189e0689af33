package tetris

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFinished = errors.New("session already finished")
	ErrNotSessionOwner = errors.New("session belongs to another user")
)

// セッションのステータス
const (
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

const (
	// DefaultTickRate はゲームを進める間隔です (60fps)。
	DefaultTickRate = time.Second / 60
	// maxFrameDelta は1回の Update に渡す経過時間の上限です。処理が詰まった後に重力がまとめて進まないようにします。
	maxFrameDelta = 100 * time.Millisecond
	// finishedRetention は終了したセッションの結果を取得できる期間です。
	finishedRetention = 5 * time.Minute
)

// PlayerInputEvent はクライアントから届く操作メッセージです。
// Type は "press" / "release" / "tap" のいずれかで、省略時は "tap" として扱います。
type PlayerInputEvent struct {
	UserID    string `json:"-"`
	SessionID string `json:"-"`
	Action    string `json:"action"`
	Type      string `json:"type"`
}

// GameSession は1人用のゲームセッションです。
// State と Input は SessionManager のメインループからのみ更新されます。
type GameSession struct {
	ID        string
	UserID    string
	Status    string
	State     *PlayerGameState
	Input     InputState
	StartedAt time.Time
	EndedAt   time.Time

	snapshot []byte // 直近のスナップショット (JSON)
}

// SessionSnapshot はクライアントへ送るセッション全体の状態です。
type SessionSnapshot struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Player    *PlayerSnapshot `json:"player"`
}

// SessionInfo はセッションのメタ情報です。ゲームの状態そのものは含みません。
type SessionInfo struct {
	ID        string
	UserID    string
	Status    string
	StartedAt time.Time
	EndedAt   time.Time
}

// SessionManagerConfig は SessionManager の設定です。
type SessionManagerConfig struct {
	Settings GameSettings
	TickRate time.Duration
	// Results が nil の場合、結果は保存されません
	Results database.ResultRepository
	// NewShuffler はセッションごとのシャッフラーを作ります。nil なら時刻をシードにします
	NewShuffler func() Shuffler
	Appearance  AppearanceProvider
}

// SessionManager はゲームセッションとWebSocketクライアント接続の全体を管理します。
// ゲームの状態を進めるのは Run のゴルーチンだけです。
type SessionManager struct {
	sessions    map[string]*GameSession // sessionID -> GameSession
	clients     map[string]*Client      // sessionID -> Client (1セッションにつき1接続)
	register    chan *Client
	unregister  chan *Client
	inputEvents chan PlayerInputEvent
	quit        chan struct{}
	quitOnce    sync.Once
	mu          sync.RWMutex // sessions と clients マップ、スナップショットへのアクセスを保護

	settings    GameSettings
	tickRate    time.Duration
	results     database.ResultRepository
	newShuffler func() Shuffler
	appearance  AppearanceProvider
	saves       sync.WaitGroup
}

// NewSessionManager は新しい SessionManager を作成します。
// メインループは呼び出し側が go sm.Run() で開始します。
//
// Parameters:
//
//	cfg : ゲーム設定・ティック間隔・結果の保存先
//
// Returns:
//
//	*SessionManager: 初期化されたセッションマネージャーのポインタ
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.NewShuffler == nil {
		cfg.NewShuffler = func() Shuffler { return NewRandShuffler(time.Now().UnixNano()) }
	}
	return &SessionManager{
		sessions:    make(map[string]*GameSession),
		clients:     make(map[string]*Client),
		register:    make(chan *Client, 16),
		unregister:  make(chan *Client, 16),
		inputEvents: make(chan PlayerInputEvent, 512),
		quit:        make(chan struct{}),
		settings:    cfg.Settings.Normalize(),
		tickRate:    cfg.TickRate,
		results:     cfg.Results,
		newShuffler: cfg.NewShuffler,
		appearance:  cfg.Appearance,
	}
}

// Run は SessionManager のメインイベントループです。
// クライアントの登録/解除、プレイヤー入力、一定間隔でのゲーム更新とブロードキャストを処理します。
func (sm *SessionManager) Run() {
	ticker := time.NewTicker(sm.tickRate)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case client := <-sm.register:
			sm.addClient(client)

		case client := <-sm.unregister:
			sm.removeClient(client)

		case event := <-sm.inputEvents:
			sm.applyInput(event)

		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			sm.Tick(dt)

		case <-sm.quit:
			log.Printf("[SessionManager] シャットダウンシグナルを受信、メインループを終了します")
			return
		}
	}
}

// CreateSession は新しいゲームセッションを作成し、すぐにゲームを開始します。
//
// Parameters:
//
//	userID : プレイするユーザーのID
//
// Returns:
//
//	string: 作成されたセッションのID
//	error : エラーが発生した場合
func (sm *SessionManager) CreateSession(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}

	sessionID := uuid.New().String()
	session := &GameSession{
		ID:        sessionID,
		UserID:    userID,
		Status:    StatusPlaying,
		State:     NewPlayerGameState(userID, sm.settings, sm.newShuffler(), sm.appearance),
		StartedAt: time.Now(),
	}
	data, err := session.marshalSnapshot()
	if err != nil {
		return "", fmt.Errorf("failed to create game session: %w", err)
	}
	session.snapshot = data

	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()

	log.Printf("[SessionManager] Created new game session: %s for player %s", sessionID, userID)
	return sessionID, nil
}

// GetSessionInfo はセッションのメタ情報を返します。
func (sm *SessionManager) GetSessionInfo(sessionID string) (SessionInfo, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[sessionID]
	if !ok {
		return SessionInfo{}, ErrSessionNotFound
	}
	return SessionInfo{
		ID:        session.ID,
		UserID:    session.UserID,
		Status:    session.Status,
		StartedAt: session.StartedAt,
		EndedAt:   session.EndedAt,
	}, nil
}

// GetSessionSnapshot は直近のスナップショット (JSON) を返します。
func (sm *SessionManager) GetSessionSnapshot(sessionID string) (json.RawMessage, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return json.RawMessage(session.snapshot), nil
}

// RegisterClient はWebSocket接続をセッションに結び付け、送受信のゴルーチンを開始します。
// 同じセッションに既存の接続があれば置き換えます。
func (sm *SessionManager) RegisterClient(sessionID, userID string, conn *websocket.Conn) error {
	info, err := sm.GetSessionInfo(sessionID)
	if err != nil {
		return err
	}
	if info.UserID != userID {
		return ErrNotSessionOwner
	}
	if info.Status != StatusPlaying {
		return ErrSessionFinished
	}

	client := newClient(sessionID, userID, conn)
	go sm.readPump(client)
	go client.writePump()

	select {
	case sm.register <- client:
	case <-sm.quit:
		client.SafeClose()
		return errors.New("session manager is shut down")
	}
	return nil
}

func (sm *SessionManager) addClient(client *Client) {
	sm.mu.Lock()
	if existing, ok := sm.clients[client.SessionID]; ok && existing != client {
		log.Printf("[SessionManager] Replacing existing connection for session %s", client.SessionID)
		existing.SafeClose()
	}
	sm.clients[client.SessionID] = client
	session := sm.sessions[client.SessionID]
	var snapshot []byte
	if session != nil {
		snapshot = session.snapshot
	}
	sm.mu.Unlock()

	log.Printf("[SessionManager] Client registered: %s (Session: %s)", client.UserID, client.SessionID)
	if snapshot != nil {
		client.SafeSend(snapshot)
	}
}

// removeClient は接続を登録解除します。プレイ中に切断された場合はセッションを終了させます。
func (sm *SessionManager) removeClient(client *Client) {
	sm.mu.Lock()
	registered, ok := sm.clients[client.SessionID]
	if ok && registered == client {
		delete(sm.clients, client.SessionID)
	}
	session := sm.sessions[client.SessionID]
	sm.mu.Unlock()
	client.SafeClose()

	if !ok || registered != client {
		// 置き換えられた古い接続
		return
	}
	log.Printf("[SessionManager] Client unregistered: %s (Session: %s)", client.UserID, client.SessionID)
	if session != nil && session.Status == StatusPlaying {
		log.Printf("[SessionManager] Player %s left session %s during game. Ending session.", client.UserID, client.SessionID)
		sm.endSession(session)
	}
}

// applyInput はクライアントからの操作を次のフレームの入力として記録します。
func (sm *SessionManager) applyInput(event PlayerInputEvent) {
	sm.mu.RLock()
	session, ok := sm.sessions[event.SessionID]
	sm.mu.RUnlock()
	if !ok || session.Status != StatusPlaying {
		log.Printf("[SessionManager] Received input for non-existent or finished session %s from user %s", event.SessionID, event.UserID)
		return
	}
	if session.UserID != event.UserID {
		log.Printf("[SessionManager] Input from unknown user %s in session %s", event.UserID, event.SessionID)
		return
	}

	action, ok := ParseAction(event.Action)
	if !ok {
		log.Printf("[SessionManager] Unknown action %q from user %s", event.Action, event.UserID)
		return
	}
	switch event.Type {
	case "press":
		session.Input.Press(action)
	case "release":
		session.Input.Release(action)
	case "", "tap":
		session.Input.Tap(action)
	default:
		log.Printf("[SessionManager] Unknown input type %q from user %s", event.Type, event.UserID)
	}
}

// Tick はすべてのプレイ中セッションを dt だけ進め、変化があればクライアントへ送信します。
func (sm *SessionManager) Tick(dt time.Duration) {
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}

	now := time.Now()
	sm.mu.Lock()
	active := make([]*GameSession, 0, len(sm.sessions))
	for id, session := range sm.sessions {
		switch {
		case session.Status == StatusPlaying:
			active = append(active, session)
		case now.Sub(session.EndedAt) > finishedRetention:
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	for _, session := range active {
		Update(session.State, dt, &session.Input)
		session.Input.EndFrame()

		if session.State.IsGameOver() {
			sm.endSession(session)
			continue
		}
		sm.publish(session)
	}
}

// publish はスナップショットを更新し、前回と異なればクライアントへ送信します。
func (sm *SessionManager) publish(session *GameSession) {
	data, err := session.marshalSnapshot()
	if err != nil {
		log.Printf("[SessionManager] Error marshaling game state for session %s: %v", session.ID, err)
		return
	}

	sm.mu.Lock()
	changed := !bytes.Equal(data, session.snapshot)
	session.snapshot = data
	client := sm.clients[session.ID]
	sm.mu.Unlock()

	if changed && client != nil && !client.SafeSend(data) {
		log.Printf("[SessionManager] Failed to send to client %s (channel closed or full)", client.UserID)
	}
}

// endSession はセッションを終了させ、最終状態を送信して結果を保存します。
func (sm *SessionManager) endSession(session *GameSession) {
	sm.mu.Lock()
	if session.Status == StatusFinished {
		sm.mu.Unlock()
		return
	}
	session.Status = StatusFinished
	session.EndedAt = time.Now()
	sm.mu.Unlock()

	score := session.State.Score
	log.Printf("[SessionManager] Game session %s ended. Score: %d, Lines: %d, Level: %d",
		session.ID, score.Total+score.PendingPoints(), score.LinesCleared, score.Level)

	sm.publish(session)

	sm.mu.Lock()
	client := sm.clients[session.ID]
	delete(sm.clients, session.ID)
	sm.mu.Unlock()
	if client != nil {
		client.SafeClose()
	}

	if sm.results == nil {
		return
	}
	result := models.Result{
		UserID:    session.UserID,
		SessionID: session.ID,
		Score:     score.Total + score.PendingPoints(),
		Lines:     score.LinesCleared,
		Level:     score.Level,
		CreatedAt: session.EndedAt,
	}
	sm.saves.Add(1)
	go func() {
		defer sm.saves.Done()
		if _, err := sm.results.CreateResult(nil, result); err != nil {
			log.Printf("[SessionManager] Failed to save result for session %s: %v", result.SessionID, err)
		}
	}()
}

func (session *GameSession) marshalSnapshot() ([]byte, error) {
	snap := SessionSnapshot{
		ID:        session.ID,
		Status:    session.Status,
		StartedAt: session.StartedAt,
		Player:    session.State.Snapshot(),
	}
	if !session.EndedAt.IsZero() {
		ended := session.EndedAt
		snap.EndedAt = &ended
	}
	return json.Marshal(snap)
}

// Shutdown はメインループを止め、すべての接続を閉じます。保存中の結果は書き込みが終わるまで待ちます。
func (sm *SessionManager) Shutdown() {
	log.Printf("[SessionManager] シャットダウン開始...")
	sm.quitOnce.Do(func() { close(sm.quit) })

	sm.mu.Lock()
	for sessionID, client := range sm.clients {
		log.Printf("[SessionManager] セッション %s のクライアントを切断中...", sessionID)
		if client.Conn != nil {
			client.Conn.Close()
		}
		client.SafeClose()
	}
	sm.clients = make(map[string]*Client)
	sm.mu.Unlock()

	sm.saves.Wait()
	log.Printf("[SessionManager] シャットダウン完了")
}

package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/services/tetris"
)

// authTimeout は WebSocket 接続後に認証メッセージを待つ時間です。
const authTimeout = 10 * time.Second

// bypassToken は BYPASS_AUTH 有効時に WebSocket 認証で受け付けるトークンです。
const bypassToken = "BYPASS_AUTH"

// GameHandler はゲーム関連のHTTPリクエスト（セッション作成、状態取得、WebSocket接続）を処理します。
type GameHandler struct {
	sessionManager *tetris.SessionManager
	upgrader       websocket.Upgrader
	jwtSecret      string
	bypassAuth     bool
}

// NewGameHandler は新しい GameHandler インスタンスを作成します。
//
// Parameters:
//
//	sm             : セッションマネージャーへのポインタ
//	jwtSecret      : WebSocket 認証でトークンを検証する鍵
//	bypassAuth     : true なら認証を省略する (開発用)
//	allowedOrigins : WebSocket 接続を許可する Origin。"*" を含むとすべて許可
//
// Returns:
//
//	*GameHandler: 新しく作成された GameHandler のポインタ
func NewGameHandler(sm *tetris.SessionManager, jwtSecret string, bypassAuth bool, allowedOrigins []string) *GameHandler {
	return &GameHandler{
		sessionManager: sm,
		jwtSecret:      jwtSecret,
		bypassAuth:     bypassAuth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker は許可された Origin からの接続だけを受け付ける関数を返します。
// Origin ヘッダーのないリクエスト (ブラウザ以外のクライアント) は許可します。
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// WriteErrorResponse はエラーレスポンスをJSON形式で書き込みます。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WriteJSONResponse はJSONレスポンスを書き込みます。
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// CreateSession は新しいゲームセッションを作成するためのHTTPハンドラーです。
// POST /api/sessions
func (h *GameHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, "認証が必要です")
		return
	}

	sessionID, err := h.sessionManager.CreateSession(userID)
	if err != nil {
		log.Printf("[GameHandler] Failed to create session for user %s: %v", userID, err)
		WriteErrorResponse(w, http.StatusInternalServerError, "セッションの作成に失敗しました")
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]string{"session_id": sessionID, "message": "セッションを作成しました"})
}

// GetSession は特定のセッションの最新のスナップショットを返すハンドラーです。
// GET /api/sessions/{sessionID}
func (h *GameHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if sessionID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "セッションIDが必要です")
		return
	}

	snapshot, err := h.sessionManager.GetSessionSnapshot(sessionID)
	if errors.Is(err, tetris.ErrSessionNotFound) {
		WriteErrorResponse(w, http.StatusNotFound, "指定されたセッションは見つかりませんでした")
		return
	}
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "セッションの取得に失敗しました")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(snapshot)
}

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleWebSocketConnection はHTTP接続をWebSocketにアップグレードし、
// 最初のメッセージで認証した後、接続をセッションマネージャーに引き渡します。
// GET /ws/sessions/{sessionID}
func (h *GameHandler) HandleWebSocketConnection(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if sessionID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "WebSocket接続にはセッションIDが必要です")
		return
	}
	if _, err := h.sessionManager.GetSessionInfo(sessionID); err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "指定されたセッションは見つかりませんでした")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[GameHandler] Failed to upgrade to websocket for session %s: %v", sessionID, err)
		return
	}
	log.Printf("[GameHandler] WebSocket upgraded for session %s.", sessionID)

	userID, err := h.authenticate(conn)
	if err != nil {
		log.Printf("[GameHandler] WebSocket auth failed for session %s: %v", sessionID, err)
		conn.WriteJSON(map[string]string{"error": err.Error()})
		conn.Close()
		return
	}
	conn.WriteJSON(map[string]string{"type": "auth_success", "message": "Authentication successful"})

	// 以降の読み込みは readPump がデッドラインを管理する
	conn.SetReadDeadline(time.Time{})

	if err := h.sessionManager.RegisterClient(sessionID, userID, conn); err != nil {
		log.Printf("[GameHandler] Failed to register client %s to session %s: %v", userID, sessionID, err)
		conn.WriteJSON(map[string]string{"error": registerErrorMessage(err)})
		conn.Close()
		return
	}
	// readPump と writePump が接続を引き継ぐ
}

// authenticate は最初のメッセージ {"type":"auth","token":...} を読み、ユーザーIDを返します。
func (h *GameHandler) authenticate(conn *websocket.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(authTimeout))

	var msg authMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return "", errors.New("failed to read auth message")
	}
	if msg.Type != "auth" {
		return "", errors.New("expected auth message")
	}

	if h.bypassAuth {
		if msg.Token == "" || msg.Token == bypassToken {
			return middleware.BypassUserID, nil
		}
		// トークンが付いていればそれを優先する
	}
	userID, err := middleware.ParseUserID(msg.Token, h.jwtSecret)
	if err != nil {
		return "", errors.New("invalid token")
	}
	return userID, nil
}

func registerErrorMessage(err error) string {
	switch {
	case errors.Is(err, tetris.ErrNotSessionOwner):
		return "このセッションに接続する権限がありません"
	case errors.Is(err, tetris.ErrSessionFinished):
		return "このセッションは既に終了しています"
	case errors.Is(err, tetris.ErrSessionNotFound):
		return "指定されたセッションは見つかりませんでした"
	default:
		return "セッションへの接続に失敗しました"
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/services/tetris"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// DATABASE_URL がなければ結果は保存せずにゲームだけ提供する
	var resultRepo database.ResultRepository
	if cfg.DatabaseURL != "" {
		dbService, err := database.NewDatabaseService(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("データベースの初期化に失敗しました: %v", err)
		}
		defer dbService.Close()
		if err := dbService.EnsureSchema(); err != nil {
			log.Fatalf("スキーマの作成に失敗しました: %v", err)
		}
		resultRepo = database.NewResultRepository(dbService.DB)
	} else {
		log.Printf("warning: DATABASE_URL is not set, results will not be saved")
	}

	sm := tetris.NewSessionManager(tetris.SessionManagerConfig{
		Settings:   cfg.Game,
		TickRate:   cfg.TickRate,
		Results:    resultRepo,
		Appearance: tetris.ClassicAppearance,
	})
	go sm.Run()

	gameHandler := handlers.NewGameHandler(sm, cfg.JWTSecret, cfg.BypassAuth, cfg.AllowedOrigins)
	auth := middleware.AuthMiddleware(cfg.JWTSecret, cfg.BypassAuth)

	r := mux.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Logger, chimw.Recoverer)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		handlers.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/sessions", auth(http.HandlerFunc(gameHandler.CreateSession))).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/sessions/{sessionID}", gameHandler.GetSession).Methods(http.MethodGet)

	if resultRepo != nil {
		resultHandler := handlers.NewResultHandler(resultRepo)
		api.HandleFunc("/results", resultHandler.GetTopResults).Methods(http.MethodGet)
		api.HandleFunc("/results/user/{userID}", resultHandler.GetUserResult).Methods(http.MethodGet)
	}

	// WebSocket は接続後の最初のメッセージで認証する
	r.HandleFunc("/ws/sessions/{sessionID}", gameHandler.HandleWebSocketConnection)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("サーバーの起動に失敗しました: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("シャットダウンしています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTPサーバーの停止に失敗しました: %v", err)
	}
	sm.Shutdown()
}

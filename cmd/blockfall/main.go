package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/models"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/services/tetris"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/terminal"
)

func main() {
	config.LoadDotEnv()

	// 画面が崩れるので、ログは BLOCKFALL_LOG が指定されたときだけファイルに出す
	log.SetOutput(io.Discard)
	if path := os.Getenv("BLOCKFALL_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ログファイルを開けませんでした: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	settings, err := config.LoadGameSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}

	userID := os.Getenv("BLOCKFALL_USER")
	if userID == "" {
		userID = "local"
	}
	game := terminal.NewGame(userID, settings, nil)

	// DATABASE_URL があればゲームオーバー時に結果を保存する
	if url := os.Getenv("DATABASE_URL"); url != "" {
		dbService, err := database.NewDatabaseService(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "データベースに接続できませんでした: %v\n", err)
			os.Exit(1)
		}
		defer dbService.Close()
		repo := database.NewResultRepository(dbService.DB)
		game.OnGameOver(func(state *tetris.PlayerGameState) {
			result := models.Result{
				UserID:    state.UserID,
				SessionID: uuid.New().String(),
				Score:     state.Score.Total,
				Lines:     state.Score.LinesCleared,
				Level:     state.Score.Level,
			}
			if _, err := repo.CreateResult(nil, result); err != nil {
				log.Printf("[Terminal] Failed to save result: %v", err)
			}
		})
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "端末の初期化に失敗しました: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "端末の初期化に失敗しました: %v\n", err)
		os.Exit(1)
	}
	screen.HideCursor()

	terminal.Run(screen, game)
	screen.Fini()

	fmt.Printf("Score: %d  Lines: %d  Level: %d\n", game.State.Score.Total+game.State.Score.PendingPoints(), game.State.Score.LinesCleared, game.State.Score.Level)
}

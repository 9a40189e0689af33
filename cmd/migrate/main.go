package main

import (
	"fmt"
	"log"
	"os"

	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/blockfall/internal/database"
)

// resultsテーブルを作成し、接続先のデータベースのバージョンを表示します。
func main() {
	config.LoadDotEnv()
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("エラー: DATABASE_URL 環境変数が設定されていません。")
	}

	fmt.Println("データベース接続を試行中...")
	dbService, err := database.NewDatabaseService(databaseURL)
	if err != nil {
		log.Fatalf("エラー: データベースへの接続に失敗しました。接続情報やネットワークを確認してください: %v", err)
	}
	defer dbService.Close()

	if err := dbService.EnsureSchema(); err != nil {
		log.Fatalf("エラー: スキーマの作成に失敗しました: %v", err)
	}
	fmt.Println("成功: resultsテーブルの準備ができました。")

	version, err := dbService.Version()
	if err != nil {
		log.Printf("警告: SELECT version() クエリの実行に失敗しました: %v", err)
		return
	}
	fmt.Printf("データベースバージョン: %s\n", version)
}

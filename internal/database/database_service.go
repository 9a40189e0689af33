package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq" // PostgreSQLドライバー
)

// DatabaseService provides methods for interacting with the database.
type DatabaseService struct {
	DB *sql.DB
}

// NewDatabaseService creates a new instance of DatabaseService and establishes a database connection.
func NewDatabaseService(databaseURL string) (*DatabaseService, error) {
	log.Printf("DatabaseService Info: データベース接続を試行中: %s...", truncateURL(databaseURL))
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Printf("DatabaseService Error: sql.Openに失敗しました: %v", err)
		return nil, fmt.Errorf("データベースへの接続オブジェクト作成に失敗しました: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Printf("DatabaseService Error: db.Pingに失敗しました: %v", err)
		db.Close()
		return nil, fmt.Errorf("データベースのPingに失敗しました。接続情報やネットワークを確認してください: %w", err)
	}

	log.Println("DatabaseService Info: データベースに正常に接続しました。")
	return &DatabaseService{DB: db}, nil
}

// schemaStatements は results テーブルを作成するDDLです。何度実行しても安全です。
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS results (
		id         BIGSERIAL PRIMARY KEY,
		user_id    TEXT        NOT NULL,
		session_id TEXT        NOT NULL DEFAULT '',
		score      INTEGER     NOT NULL,
		lines      INTEGER     NOT NULL DEFAULT 0,
		level      INTEGER     NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS results_score_idx ON results (score DESC, created_at ASC)`,
	`CREATE INDEX IF NOT EXISTS results_user_idx ON results (user_id)`,
}

// EnsureSchema はアプリケーションが使うテーブルを作成します。
func (s *DatabaseService) EnsureSchema() error {
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("スキーマの作成に失敗しました: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("スキーマ作成のコミットに失敗しました: %w", err)
	}
	log.Println("DatabaseService Info: スキーマを確認しました。")
	return nil
}

// Version はデータベースのバージョン文字列を返します。
func (s *DatabaseService) Version() (string, error) {
	var version string
	if err := s.DB.QueryRow("SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("SELECT version() クエリの実行に失敗しました: %w", err)
	}
	return version, nil
}

// Close はデータベース接続を閉じます。
func (s *DatabaseService) Close() error {
	return s.DB.Close()
}

// truncateURL は接続URLをログに出せる長さに切り詰めます。
func truncateURL(databaseURL string) string {
	return databaseURL[:min(len(databaseURL), 50)]
}

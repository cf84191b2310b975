// Package dbtest はテスト用のインメモリ SQLite を用意する。
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"ResumeSection-backend/internal/platform/config"
	"ResumeSection-backend/internal/platform/db"
)

// Open はマイグレーション済みのインメモリ DB を返す。テスト終了時に閉じる。
func Open(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.Migrate(context.Background(), conn, config.DriverSQLite); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

// InsertAccount はテスト用のアカウント行を直接作り、ID を返す。
func InsertAccount(t *testing.T, conn *sql.DB, username, role string) int64 {
	t.Helper()

	res, err := conn.Exec(`INSERT INTO accounts (username, password_hash, role, created_at) VALUES (?, 'x', ?, '2024-01-01 00:00:00.000000')`,
		username, role)
	if err != nil {
		t.Fatalf("insert account %s: %v", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}

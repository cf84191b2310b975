package db

import (
	"context"
	"database/sql"
	"fmt"

	"ResumeSection-backend/internal/platform/config"
)

// MaxOffering は reports.offering (DECIMAL(14,2)) に入る最大額。
const MaxOffering = "999999999999.99"

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
	id            BIGINT       NOT NULL AUTO_INCREMENT,
	username      VARCHAR(80)  NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	role          VARCHAR(16)  NOT NULL,
	created_at    DATETIME(6)  NOT NULL,
	PRIMARY KEY (id),
	UNIQUE KEY uq_accounts_username (username)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reports (
	id              CHAR(26)      NOT NULL,
	section_id      BIGINT        NOT NULL,
	report_date     DATE          NOT NULL,
	preacher        VARCHAR(120)  NOT NULL,
	total_attendees INT           NOT NULL,
	men             INT           NOT NULL DEFAULT 0,
	women           INT           NOT NULL DEFAULT 0,
	children        INT           NOT NULL DEFAULT 0,
	youth           INT           NOT NULL DEFAULT 0,
	offering        DECIMAL(14,2) NOT NULL DEFAULT 0,
	currency        VARCHAR(8)    NOT NULL,
	notes           TEXT          NULL,
	submitted_by    VARCHAR(80)   NOT NULL,
	submitted_at    DATETIME(6)   NOT NULL,
	PRIMARY KEY (id),
	KEY idx_reports_section_date (section_id, report_date),
	KEY idx_reports_date (report_date),
	CONSTRAINT fk_reports_section FOREIGN KEY (section_id) REFERENCES accounts (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// SQLite では日付・時刻・金額を TEXT で持つ（Date/Timestamp/decimal が変換する）。
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT    NOT NULL UNIQUE,
	password_hash TEXT    NOT NULL,
	role          TEXT    NOT NULL,
	created_at    TEXT    NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS reports (
	id              TEXT    PRIMARY KEY,
	section_id      INTEGER NOT NULL REFERENCES accounts (id),
	report_date     TEXT    NOT NULL,
	preacher        TEXT    NOT NULL,
	total_attendees INTEGER NOT NULL,
	men             INTEGER NOT NULL DEFAULT 0,
	women           INTEGER NOT NULL DEFAULT 0,
	children        INTEGER NOT NULL DEFAULT 0,
	youth           INTEGER NOT NULL DEFAULT 0,
	offering        TEXT    NOT NULL DEFAULT '0',
	currency        TEXT    NOT NULL,
	notes           TEXT    NULL,
	submitted_by    TEXT    NOT NULL,
	submitted_at    TEXT    NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_section_date ON reports (section_id, report_date)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_date ON reports (report_date)`,
}

// Migrate はスキーマを作成する。何度実行しても同じ結果になる。
func Migrate(ctx context.Context, conn *sql.DB, driver string) error {
	stmts := mysqlSchema
	if driver == config.DriverSQLite {
		stmts = sqliteSchema
	}
	for i, q := range stmts {
		if _, err := conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

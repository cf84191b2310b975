package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"ResumeSection-backend/internal/platform/config"
)

// Open は設定に応じて MySQL / SQLite の接続プールを作り、疎通を確認する。
func Open(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	driver, dsn, err := DSN(c)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	switch c.Driver {
	case config.DriverSQLite:
		// SQLite は書き込みが直列なので 1 本に絞る。:memory: もこれで同じDBを共有できる。
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	default:
		// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
		db.SetMaxOpenConns(80)
		db.SetMaxIdleConns(20)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// DSN はドライバ名と接続文字列を返す。
func DSN(c config.DatabaseConfig) (string, string, error) {
	switch c.Driver {
	case config.DriverMySQL, "":
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
			c.Username, c.Password, c.Host, c.Port, c.DBName), nil
	case config.DriverSQLite:
		path := c.Path
		if path == "" {
			path = ":memory:"
		}
		return "sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path), nil
	}
	return "", "", fmt.Errorf("unsupported database driver %q", c.Driver)
}

// Package cmd はサーバ起動と管理用サブコマンド。
package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ResumeSection-backend/internal/platform/config"
	"ResumeSection-backend/internal/platform/db"
	"ResumeSection-backend/internal/platform/logger"
)

var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "resume-section",
	Short:         "Section activity report server",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	// サブコマンド無しはサーバ起動
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, userCmd)
}

// Execute は main から1回だけ呼ぶ。
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap は設定・ロガー・DB接続・マイグレーションをまとめて用意する。
func bootstrap(ctx context.Context) (*config.Config, zerolog.Logger, *sql.DB, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty || cfg.Mode == config.ModeDev)

	conn, err := db.Open(ctx, cfg.DB)
	if err != nil {
		return nil, log, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Migrate(ctx, conn, cfg.DB.Driver); err != nil {
		_ = conn.Close()
		return nil, log, nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("driver", cfg.DB.Driver).Str("mode", cfg.Mode).Msg("database ready")
	return cfg, log, conn, nil
}

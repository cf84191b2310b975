package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"ResumeSection-backend/internal/docs"
	"ResumeSection-backend/internal/export"
	"ResumeSection-backend/internal/platform/auth"
	"ResumeSection-backend/internal/platform/config"
	"ResumeSection-backend/internal/platform/logger"
	"ResumeSection-backend/internal/reports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, log, conn, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	opts, err := reports.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.Logger = log
	opts.Renderers = []reports.Renderer{
		export.NewPDFRenderer("ResumeSection", logger.Component(log, "pdf")),
		export.NewCSVRenderer(),
	}
	reportSvc := reports.NewService(conn, opts)
	authSvc := auth.NewService(conn, auth.Options{
		Secret:     []byte(cfg.Auth.JWTSecret),
		TTL:        cfg.Auth.TokenTTL,
		References: reportSvc.Store(),
		Logger:     log,
	})

	r := newRouter(cfg, log, authSvc, reportSvc)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.Certificate.Cert != "" && cfg.Server.Certificate.Key != "" {
			log.Info().Str("addr", cfg.Server.Addr).Msg("listening (https)")
			err = srv.ListenAndServeTLS(cfg.Server.Certificate.Cert, cfg.Server.Certificate.Key)
		} else {
			log.Info().Str("addr", cfg.Server.Addr).Msg("listening (http)")
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-sigCtx.Done():
	}

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *config.Config, log zerolog.Logger, authSvc *auth.Service, reportSvc *reports.Service) *gin.Engine {
	if cfg.Mode == config.ModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger(logger.Component(log, "http")), requestTimeout(cfg.Server.RequestTimeout))
	_ = r.SetTrustedProxies(nil)

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Location", logger.HeaderRequestID},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	docs.SwaggerInfo.Version = Version
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, authSvc)
	reports.RegisterRoutes(api, reportSvc, authSvc.Secret())

	if cfg.Server.FrontendDir != "" {
		r.NoRoute(spaHandler(os.DirFS(cfg.Server.FrontendDir)))
	}
	return r
}

// requestTimeout はハンドラに渡す context に期限を付ける。ダウンロードも同じ期限に従う。
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

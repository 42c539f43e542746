package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jimdaga/unipost/internal/auth"
	"github.com/jimdaga/unipost/internal/crypto"
	"github.com/jimdaga/unipost/internal/database"
	"github.com/jimdaga/unipost/internal/health"
	"github.com/jimdaga/unipost/internal/posts"
	"github.com/jimdaga/unipost/internal/session"
	"github.com/jimdaga/unipost/internal/webhook"
)

const sessionCookieName = "unipost_session"

func newServeCommand(ctx *commandContext) *cobra.Command {
	var withWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), ctx, withWorker)
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "Also run the background worker in this process")
	return cmd
}

func runServe(parent context.Context, cc *commandContext, withWorker bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger := cc.cfg, cc.logger
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if a.db != nil {
		if _, err := database.RunMigrations(a.db, logger); err != nil {
			return err
		}
		if err := database.EnsureStatisticsRow(a.db); err != nil {
			return err
		}
	}

	if withWorker {
		stopBackground, err := a.startBackground()
		if err != nil {
			return err
		}
		defer stopBackground()
	}

	router, err := newRouter(a)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "with_worker", withWorker)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func newRouter(a *app) (*gin.Engine, error) {
	cfg, logger := a.cfg, a.logger

	sealer, err := newSealer(a)
	if err != nil {
		return nil, err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookieName, store))

	r.GET("/health", gin.WrapF(health.Handler))
	r.GET("/ready", health.ReadyHandler(readinessChecks(a)))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandlers := auth.NewHandlers(a.content, sealer, a.sessions, session.NewID, logger)
	r.POST("/login", authHandlers.HandleLogin)
	r.POST("/logout", authHandlers.HandleLogout)

	api := r.Group("/api", auth.RequireAuth(sealer, logger))
	var reindex posts.ReferenceSync
	if a.enqueuer != nil {
		reindex = a.enqueuer
	}
	posts.NewHandlers(posts.Deps{
		Generator: a.orchestrator,
		Posts:     a.content,
		Reviewer:  a.reviewer,
		Sessions:  a.sessions,
		Cache:     a.cache,
		Reindex:   reindex,
		Stats:     a.recorder,
		Logger:    logger,
	}).Register(api)

	r.POST("/webhook/decisions", webhook.DecisionHandler(a.applier, cfg.ApprovalWebhookSecret, logger))
	return r, nil
}

func newSealer(a *app) (*crypto.TokenSealer, error) {
	if a.cfg.EncryptionKey != "" {
		return crypto.NewTokenSealer(a.cfg.EncryptionKey)
	}
	a.logger.Warn("ENCRYPTION_KEY not set, deriving the token key from SESSION_SECRET")
	return crypto.NewTokenSealerFromSecret(a.cfg.SessionSecret)
}

func readinessChecks(a *app) map[string]health.Checker {
	checks := map[string]health.Checker{
		"redis": func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() },
	}
	if a.db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	return checks
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
			return
		}
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

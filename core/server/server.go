package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"echoloom-api/core/cache"
	"echoloom-api/core/config"
	"echoloom-api/core/database"
	"echoloom-api/core/logger"
	"echoloom-api/core/middleware"
	"echoloom-api/core/video"
	"echoloom-api/core/worker"
	"echoloom-api/modules/auth"
	"echoloom-api/modules/chat"
	"echoloom-api/modules/meeting"
	"echoloom-api/modules/notification"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// Run boots the full API: config, storage, cache, modules, worker, and the
// HTTP listener. It blocks until SIGINT/SIGTERM and then drains.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	c, err := cache.NewCache(cfg.Redis)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())

	e.GET("/health", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	mw := middleware.NewMiddleware(c)
	provider := video.NewDailyClient(cfg.Daily)

	v1 := e.Group("/api/v1")
	_, mailer := notification.Init(v1, &db, mw)
	accounts := auth.Init(e, &db, c, mw, mailer)
	meetings := meeting.Init(e, &db, c, mw, accounts, mailer, provider)
	chat.Init(e, &db, mw, cfg.AWS)

	w := worker.New(cfg.Redis, meetings)
	if err := w.Start(); err != nil {
		// The API stays useful without the sweeper; rooms expire on the
		// provider side anyway.
		logger.Error("Server:Run:WorkerStart:Error:", err)
		w = nil
	}

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("Server:Run:Listening", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if w != nil {
			w.Shutdown()
		}
		return err
	case sig := <-quit:
		logger.Info("Server:Run:Shutdown", "signal", sig.String())
	}

	if w != nil {
		w.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
